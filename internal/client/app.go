// Package client is the PromptBuddy front end. It owns the session, the daily
// quota and speech capture, and reaches the language model only through the
// API server.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/providers/completion"
	"github.com/ankitjc/prompt-polish/internal/session"
	"github.com/ankitjc/prompt-polish/internal/speech"
	"github.com/ankitjc/prompt-polish/internal/usage"
)

// IdentityVerifier checks a login token against its issuer.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, token string) (domain.Identity, error)
}

type App struct {
	Sessions    *session.Store
	Gate        *usage.Gate
	Generator   Generator
	Transcriber speech.Transcriber
	// Verifier is optional; without it the token is only decoded.
	Verifier IdentityVerifier
	Logger   zerolog.Logger
}

// Login decodes the ID token once and persists the identity it carries.
func (a *App) Login(ctx context.Context, token string) (domain.Identity, error) {
	var (
		id  domain.Identity
		err error
	)
	if a.Verifier != nil {
		id, err = a.Verifier.VerifyIdentity(ctx, strings.TrimSpace(token))
	} else {
		id, err = session.DecodeIDToken(token)
	}
	if err != nil {
		return domain.Identity{}, err
	}
	if err := a.Sessions.Login(ctx, id); err != nil {
		return domain.Identity{}, err
	}
	a.Logger.Debug().Str("email", id.Email).Msg("logged in")
	return id, nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.Sessions.Logout(ctx)
}

func (a *App) Whoami(ctx context.Context) (domain.Identity, error) {
	return a.Sessions.Require(ctx)
}

// Quota reports today's usage for the logged-in identity.
func (a *App) Quota(ctx context.Context) (usage.Snapshot, error) {
	id, err := a.Sessions.Require(ctx)
	if err != nil {
		return usage.Snapshot{}, err
	}
	return a.Gate.Usage(ctx, id)
}

// Listen transcribes audio into keywords.
func (a *App) Listen(ctx context.Context, audio []byte) (string, error) {
	if a.Transcriber == nil {
		return "", speech.ErrNotConfigured
	}
	return a.Transcriber.Transcribe(ctx, audio)
}

// Generate validates input, checks session and quota, then asks the server for a
// sentence. A failed call is not an error: the result carries the placeholder
// and Failed is set. Usage is recorded only for a successful call.
func (a *App) Generate(ctx context.Context, keywords, tone, simplicity string) (domain.GenerationResult, error) {
	req, err := domain.NewGenerationRequest(keywords, tone, simplicity)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	id, err := a.Sessions.Require(ctx)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	ok, err := a.Gate.CanProceed(ctx, id)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if !ok {
		return domain.GenerationResult{}, domain.ErrQuotaExceeded
	}

	sentence, err := a.Generator.Generate(ctx, req)
	if err != nil {
		a.Logger.Warn().Err(err).Str("email", id.Email).Msg("generation failed")
		return domain.GenerationResult{Sentence: completion.FallbackSentence, Failed: true}, nil
	}

	if err := a.Gate.RecordUsage(ctx, id); err != nil {
		// keep the sentence even when the counter write fails
		a.Logger.Error().Err(err).Str("email", id.Email).Msg("record usage")
	}
	return domain.GenerationResult{Sentence: sentence}, nil
}

// GenerateFromAudio transcribes first and generates only after transcription
// has finished. An exhausted quota refuses before any audio is sent.
func (a *App) GenerateFromAudio(ctx context.Context, audio []byte, tone, simplicity string) (string, domain.GenerationResult, error) {
	id, err := a.Sessions.Require(ctx)
	if err != nil {
		return "", domain.GenerationResult{}, err
	}
	ok, err := a.Gate.CanProceed(ctx, id)
	if err != nil {
		return "", domain.GenerationResult{}, err
	}
	if !ok {
		return "", domain.GenerationResult{}, domain.ErrQuotaExceeded
	}
	keywords, err := a.Listen(ctx, audio)
	if err != nil {
		return "", domain.GenerationResult{}, fmt.Errorf("transcribe: %w", err)
	}
	res, err := a.Generate(ctx, keywords, tone, simplicity)
	return keywords, res, err
}

// IsRefusal reports whether err is a refused action rather than a failure.
func IsRefusal(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) ||
		errors.Is(err, domain.ErrNotLoggedIn) ||
		errors.Is(err, domain.ErrEmptyKeywords)
}
