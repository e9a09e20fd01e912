// Package completion talks to hosted language-model endpoints. Each provider sends
// one instruction, asks for a single short completion and validates the response
// envelope before handing back trimmed text.
package completion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
)

// FallbackSentence is what end users see when no sentence could be produced.
const FallbackSentence = "Something went wrong."

// MaxTokens caps the generated length for every provider.
const MaxTokens = 60

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

var (
	ErrMissingCredential = errors.New("completion: provider credential missing")
	ErrTransport         = errors.New("completion: transport failure")
	ErrUpstreamStatus    = errors.New("completion: upstream returned non-success status")
	ErrMalformedEnvelope = errors.New("completion: malformed response envelope")
	ErrEmptyCompletion   = errors.New("completion: empty completion")
)

// Completer turns an instruction into generated text.
type Completer interface {
	Complete(ctx context.Context, instruction string) (string, error)
}

// Kind labels an error returned by a Completer for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUpstreamStatus):
		return "upstream_status"
	case errors.Is(err, ErrMalformedEnvelope):
		return "malformed_envelope"
	case errors.Is(err, ErrEmptyCompletion):
		return "empty_completion"
	default:
		return "unknown"
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// bodySnippet keeps a short prefix of an error body for server-side diagnostics.
func bodySnippet(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(b))
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
