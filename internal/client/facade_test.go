package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ankitjc/prompt-polish/internal/domain"
)

func TestFacadeClientGenerate(t *testing.T) {
	var got facadeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != GeneratePath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"sentence":"  Hello world.  "}`))
	}))
	defer srv.Close()

	req, _ := domain.NewGenerationRequest("hello world", "formal", "intermediate")
	sentence, err := NewFacadeClient(srv.URL+"/", 0).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if sentence != "Hello world." {
		t.Fatalf("sentence = %q", sentence)
	}
	if got.Keywords != "hello world" || got.Tone != "formal" || got.Simplicity != "intermediate" {
		t.Fatalf("request body = %+v", got)
	}
}

func TestFacadeClientErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"Failed to generate sentence"}`, wantErr: ErrFacadeStatus},
		{name: "method not allowed", status: http.StatusMethodNotAllowed, body: `{"error":"Method not allowed"}`, wantErr: ErrFacadeStatus},
		{name: "html error page", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantErr: ErrFacadeStatus},
		{name: "empty object", status: http.StatusOK, body: `{}`, wantErr: ErrFacadeResponse},
		{name: "blank sentence", status: http.StatusOK, body: `{"sentence":"  "}`, wantErr: ErrFacadeResponse},
		{name: "not json", status: http.StatusOK, body: `sentence`, wantErr: ErrFacadeResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			req, _ := domain.NewGenerationRequest("hi", "", "")
			if _, err := NewFacadeClient(srv.URL, 0).Generate(context.Background(), req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("Generate error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestFacadeClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	req, _ := domain.NewGenerationRequest("hi", "", "")
	if _, err := NewFacadeClient(url, 0).Generate(context.Background(), req); !errors.Is(err, ErrFacadeUnavailable) {
		t.Fatalf("Generate error = %v, want %v", err, ErrFacadeUnavailable)
	}
}
