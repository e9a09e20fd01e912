package completion

import (
	"context"
	"strings"
)

const defaultStaticSentence = "This is a sample sentence generated without a language model."

// StaticCompleter answers every instruction with a fixed sentence. It lets the
// service run in development without a provider account.
type StaticCompleter struct {
	sentence string
}

func NewStaticCompleter(sentence string) *StaticCompleter {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		sentence = defaultStaticSentence
	}
	return &StaticCompleter{sentence: sentence}
}

func (s *StaticCompleter) Complete(ctx context.Context, instruction string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.sentence, nil
}

var _ Completer = (*StaticCompleter)(nil)
