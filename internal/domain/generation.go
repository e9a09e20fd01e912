package domain

import (
	"fmt"
	"strings"
)

// Tone enumerates the voices a generated sentence can take.
type Tone string

const (
	ToneCasual   Tone = "casual"
	ToneFormal   Tone = "formal"
	ToneFriendly Tone = "friendly"
	ToneFunny    Tone = "funny"
)

// Simplicity enumerates the language complexity levels.
type Simplicity string

const (
	SimplicitySimple       Simplicity = "simple"
	SimplicityIntermediate Simplicity = "intermediate"
	SimplicityAdvanced     Simplicity = "advanced"
)

const (
	DefaultTone       = ToneCasual
	DefaultSimplicity = SimplicitySimple
)

// Option is a selectable value with its presentation hint.
type Option struct {
	Value string
	Emoji string
}

var ToneOptions = []Option{
	{Value: string(ToneCasual), Emoji: "🧢"},
	{Value: string(ToneFormal), Emoji: "🧑‍⚖️"},
	{Value: string(ToneFriendly), Emoji: "🤗"},
	{Value: string(ToneFunny), Emoji: "🤣"},
}

var SimplicityOptions = []Option{
	{Value: string(SimplicitySimple), Emoji: "🐣"},
	{Value: string(SimplicityIntermediate), Emoji: "🧠"},
	{Value: string(SimplicityAdvanced), Emoji: "🧬"},
}

// ParseTone normalizes raw input into a Tone. Empty input yields DefaultTone.
func ParseTone(raw string) (Tone, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return DefaultTone, nil
	}
	switch Tone(v) {
	case ToneCasual, ToneFormal, ToneFriendly, ToneFunny:
		return Tone(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTone, raw)
}

// ParseSimplicity normalizes raw input into a Simplicity. Empty input yields DefaultSimplicity.
func ParseSimplicity(raw string) (Simplicity, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return DefaultSimplicity, nil
	}
	switch Simplicity(v) {
	case SimplicitySimple, SimplicityIntermediate, SimplicityAdvanced:
		return Simplicity(v), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSimplicity, raw)
}

// GenerationRequest is a validated request for one sentence.
type GenerationRequest struct {
	Keywords   string     `json:"keywords"`
	Tone       Tone       `json:"tone"`
	Simplicity Simplicity `json:"simplicity"`
}

// NewGenerationRequest trims and validates raw user input. Keywords that are empty
// after trimming yield ErrEmptyKeywords, which callers treat as "do not issue".
func NewGenerationRequest(keywords, tone, simplicity string) (GenerationRequest, error) {
	kw := strings.TrimSpace(keywords)
	if kw == "" {
		return GenerationRequest{}, ErrEmptyKeywords
	}
	t, err := ParseTone(tone)
	if err != nil {
		return GenerationRequest{}, err
	}
	s, err := ParseSimplicity(simplicity)
	if err != nil {
		return GenerationRequest{}, err
	}
	return GenerationRequest{Keywords: kw, Tone: t, Simplicity: s}, nil
}

// GenerationResult is the outcome of one generation. Failed marks the placeholder
// sentence shown when the completion path did not produce text.
type GenerationResult struct {
	Sentence string `json:"sentence"`
	Failed   bool   `json:"failed,omitempty"`
}
