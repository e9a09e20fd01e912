package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ankitjc/prompt-polish/internal/domain"
)

// GeneratePath is the generate-sentence endpoint on the API server.
const GeneratePath = "/api/generate-sentence"

var (
	ErrFacadeUnavailable = errors.New("client: api server unreachable")
	ErrFacadeStatus      = errors.New("client: api server returned non-success status")
	ErrFacadeResponse    = errors.New("client: api server response malformed")
)

// Generator produces a sentence for a validated request.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// FacadeClient calls the API server over HTTP. It never holds a provider
// credential.
type FacadeClient struct {
	baseURL string
	client  *http.Client
}

func NewFacadeClient(baseURL string, timeout time.Duration) *FacadeClient {
	client := http.DefaultClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}
	return &FacadeClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type facadeRequest struct {
	Keywords   string `json:"keywords"`
	Tone       string `json:"tone"`
	Simplicity string `json:"simplicity"`
}

type facadeResponse struct {
	Sentence *string `json:"sentence"`
	Error    string  `json:"error"`
}

func (f *FacadeClient) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	body, err := json.Marshal(facadeRequest{
		Keywords:   req.Keywords,
		Tone:       string(req.Tone),
		Simplicity: string(req.Simplicity),
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+GeneratePath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFacadeUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrFacadeResponse, err)
	}
	var out facadeResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %d %s", ErrFacadeStatus, resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %w", ErrFacadeResponse, decodeErr)
	}
	if out.Sentence == nil {
		return "", fmt.Errorf("%w: sentence missing", ErrFacadeResponse)
	}
	sentence := strings.TrimSpace(*out.Sentence)
	if sentence == "" {
		return "", fmt.Errorf("%w: sentence empty", ErrFacadeResponse)
	}
	return sentence, nil
}

var _ Generator = (*FacadeClient)(nil)
