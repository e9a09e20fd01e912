package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/providers/completion"
	"github.com/ankitjc/prompt-polish/internal/providers/prompt"
)

const (
	maxGenerateBody = 16 << 10

	// Returned for every completion failure; provider detail stays in the log.
	generateFailedMessage = "Failed to generate sentence"
)

type generateRequest struct {
	Keywords   string `json:"keywords"`
	Tone       string `json:"tone"`
	Simplicity string `json:"simplicity"`
}

type generateResponse struct {
	Sentence string `json:"sentence"`
}

// GenerateSentence turns keywords into one sentence through the configured completer.
func (a *App) GenerateSentence(w http.ResponseWriter, r *http.Request) {
	logger := a.requestLogger(r)

	var in generateRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxGenerateBody))
	if err := dec.Decode(&in); err != nil {
		a.error(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req, err := domain.NewGenerationRequest(in.Keywords, in.Tone, in.Simplicity)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyKeywords):
			a.error(w, http.StatusBadRequest, "Keywords are required")
		case errors.Is(err, domain.ErrInvalidTone):
			a.error(w, http.StatusBadRequest, "Invalid tone")
		case errors.Is(err, domain.ErrInvalidSimplicity):
			a.error(w, http.StatusBadRequest, "Invalid simplicity")
		default:
			a.error(w, http.StatusBadRequest, "Invalid request")
		}
		return
	}

	sentence, err := a.Completer.Complete(r.Context(), prompt.BuildInstruction(req))
	if err != nil {
		logger.Error().Err(err).
			Str("kind", completion.Kind(err)).
			Str("tone", string(req.Tone)).
			Str("simplicity", string(req.Simplicity)).
			Msg("sentence generation failed")
		a.error(w, http.StatusInternalServerError, generateFailedMessage)
		return
	}

	logger.Debug().Int("chars", len(sentence)).Msg("sentence generated")
	a.json(w, http.StatusOK, generateResponse{Sentence: sentence})
}

// requestLogger prefers the request scoped logger installed by the access log middleware.
func (a *App) requestLogger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
