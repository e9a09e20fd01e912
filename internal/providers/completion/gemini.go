package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type GeminiCompleter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

const defaultGeminiModel = "gemini-1.5-flash"

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	CandidateCount  int `json:"candidateCount,omitempty"`
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates *[]struct {
		Content *struct {
			Parts *[]struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// NewGeminiCompleter builds a generateContent client. Like the OpenAI client it
// tolerates a blank key until the first call.
func NewGeminiCompleter(opts GeminiOptions) *GeminiCompleter {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiCompleter{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

// Model returns the configured model identifier.
func (g *GeminiCompleter) Model() string {
	return g.model
}

func (g *GeminiCompleter) Complete(ctx context.Context, instruction string) (string, error) {
	if g.apiKey == "" {
		return "", ErrMissingCredential
	}
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: instruction}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount:  1,
			MaxOutputTokens: MaxTokens,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("gemini: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("%w: gemini status %d: %s", ErrUpstreamStatus, resp.StatusCode, bodySnippet(resp))
	}
	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: gemini decode: %w", ErrMalformedEnvelope, err)
	}
	return extractGeminiText(out)
}

func (g *GeminiCompleter) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func extractGeminiText(out geminiResponse) (string, error) {
	if out.Candidates == nil {
		return "", fmt.Errorf("%w: gemini: missing candidates", ErrMalformedEnvelope)
	}
	candidates := *out.Candidates
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: gemini: no candidates", ErrEmptyCompletion)
	}
	first := candidates[0]
	if first.Content == nil || first.Content.Parts == nil {
		return "", fmt.Errorf("%w: gemini: missing content parts", ErrMalformedEnvelope)
	}
	var sb strings.Builder
	for _, part := range *first.Content.Parts {
		if part.Text != nil {
			sb.WriteString(*part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: gemini: blank content", ErrEmptyCompletion)
	}
	return text, nil
}

var _ Completer = (*GeminiCompleter)(nil)
