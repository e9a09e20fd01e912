package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	OnWarning    func(reason, detail string)
}

type OpenAICompleter struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

const defaultOpenAIModel = "gpt-4.1-nano"

var openAIModelCanonical = map[string]string{
	"gpt-4.1-nano":  "gpt-4.1-nano",
	"gpt-4.1-mini":  "gpt-4.1-mini",
	"gpt-4o-mini":   "gpt-4o-mini",
	"gpt-3.5-turbo": "gpt-3.5-turbo",
}

var openAIModelAliases = map[string]string{
	"gpt4.1-nano":            "gpt-4.1-nano",
	"gpt-41-nano":            "gpt-4.1-nano",
	"gpt41-nano":             "gpt-4.1-nano",
	"gpt4.1-mini":            "gpt-4.1-mini",
	"gpt-41-mini":            "gpt-4.1-mini",
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt-3.5":                "gpt-3.5-turbo",
	"gpt3.5":                 "gpt-3.5-turbo",
	"gpt-35-turbo":           "gpt-3.5-turbo",
}

type openAIChatRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Pointer fields let decoding tell an absent field apart from an empty one.
type openAIChatResponse struct {
	Choices *[]struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAICompleter builds a chat-completions client. A blank API key is accepted so
// the process can start; every Complete call then fails with ErrMissingCredential.
func NewOpenAICompleter(opts OpenAIOptions) *OpenAICompleter {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	modelInput := strings.TrimSpace(opts.Model)
	normalizedModel, normalizationReason := normalizeOpenAIModel(modelInput)
	if normalizationReason != "" && opts.OnWarning != nil {
		detail := fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), normalizedModel)
		opts.OnWarning("model_"+normalizationReason, detail)
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAICompleter{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        normalizedModel,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}
}

// Model returns the resolved model identifier.
func (o *OpenAICompleter) Model() string {
	return o.model
}

func (o *OpenAICompleter) Complete(ctx context.Context, instruction string) (string, error) {
	if o.apiKey == "" {
		return "", ErrMissingCredential
	}
	payload := openAIChatRequest{
		Model:     o.model,
		MaxTokens: MaxTokens,
		Messages: []openAIMessage{
			{Role: "user", Content: instruction},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("%w: openai status %d: %s", ErrUpstreamStatus, resp.StatusCode, bodySnippet(resp))
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: openai decode: %w", ErrMalformedEnvelope, err)
	}
	return extractOpenAIText(out)
}

func extractOpenAIText(out openAIChatResponse) (string, error) {
	if out.Choices == nil {
		return "", fmt.Errorf("%w: openai: missing choices", ErrMalformedEnvelope)
	}
	choices := *out.Choices
	if len(choices) == 0 {
		return "", fmt.Errorf("%w: openai: no choices", ErrEmptyCompletion)
	}
	first := choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return "", fmt.Errorf("%w: openai: missing message content", ErrMalformedEnvelope)
	}
	text := strings.TrimSpace(*first.Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: openai: blank content", ErrEmptyCompletion)
	}
	return text, nil
}

var _ Completer = (*OpenAICompleter)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		if canonical, ok := openAIModelCanonical[alias]; ok {
			return canonical, "alias"
		}
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
