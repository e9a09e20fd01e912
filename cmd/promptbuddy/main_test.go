package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
)

type facadeStub struct {
	status int
	body   string
	calls  int
}

func (f *facadeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls++
	var in map[string]string
	_ = json.NewDecoder(r.Body).Decode(&in)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(f.body))
}

func setupEnv(t *testing.T, serverURL string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("PROMPTBUDDY_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("PROMPTBUDDY_STORE", filepath.Join(dir, "state.db"))
	t.Setenv("PROMPTBUDDY_SERVER_URL", serverURL)
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("PROMPTBUDDY_SPEECH_DISABLED", "")
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func idToken(t *testing.T, name, email string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"name": name, "email": email}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestOptionsAndVersion(t *testing.T) {
	code, out, _ := runCLI(t, "options")
	if code != 0 {
		t.Fatalf("options exit code = %d", code)
	}
	for _, want := range []string{"casual", "🧢 Casual", "🧬 Advanced", "Simplicity:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("options output missing %q:\n%s", want, out)
		}
	}
	if code, out, _ := runCLI(t, "version"); code != 0 || !strings.HasPrefix(out, "promptbuddy v") {
		t.Fatalf("version = %d %q", code, out)
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "fly")
	if code != 2 || !strings.Contains(errOut, "unknown command: fly") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t); code != 2 {
		t.Fatalf("no args exit code = %d", code)
	}
}

func TestLoginGenerateQuotaLogout(t *testing.T) {
	stub := &facadeStub{status: http.StatusOK, body: `{"sentence":"Coffee first, then code."}`}
	srv := httptest.NewServer(stub)
	defer srv.Close()
	setupEnv(t, srv.URL)

	if code, _, errOut := runCLI(t, "generate", "-k", "coffee code"); code != 1 || !strings.Contains(errOut, "Not logged in") {
		t.Fatalf("generate before login = %d %q", code, errOut)
	}
	if stub.calls != 0 {
		t.Fatal("api server called without a session")
	}

	code, out, errOut := runCLI(t, "login", idToken(t, "Ada", "ada@example.com"))
	if code != 0 || !strings.Contains(out, "Logged in as Ada (ada@example.com)") {
		t.Fatalf("login = %d %q %q", code, out, errOut)
	}
	if code, out, _ := runCLI(t, "whoami"); code != 0 || !strings.Contains(out, "Ada <ada@example.com>") {
		t.Fatalf("whoami = %d %q", code, out)
	}

	code, out, errOut = runCLI(t, "generate", "-k", "coffee code", "-tone", "funny")
	if code != 0 || strings.TrimSpace(out) != "Coffee first, then code." {
		t.Fatalf("generate = %d %q %q", code, out, errOut)
	}
	if code, out, _ := runCLI(t, "quota"); code != 0 || !strings.Contains(out, "used 1 of 20, 19 remaining") {
		t.Fatalf("quota = %d %q", code, out)
	}

	if code, _, errOut := runCLI(t, "generate", "-k", "   "); code != 1 || !strings.Contains(errOut, "keywords") {
		t.Fatalf("blank generate = %d %q", code, errOut)
	}

	if code, out, _ := runCLI(t, "logout"); code != 0 || !strings.Contains(out, "Logged out") {
		t.Fatalf("logout = %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "whoami"); code != 1 {
		t.Fatalf("whoami after logout exit = %d", code)
	}
}

func TestGeneratePlaceholderOnFacadeError(t *testing.T) {
	stub := &facadeStub{status: http.StatusInternalServerError, body: `{"error":"Failed to generate sentence"}`}
	srv := httptest.NewServer(stub)
	defer srv.Close()
	setupEnv(t, srv.URL)

	if code, _, _ := runCLI(t, "login", idToken(t, "Ada", "ada@example.com")); code != 0 {
		t.Fatalf("login exit = %d", code)
	}
	code, out, _ := runCLI(t, "generate", "-k", "tired")
	if code != 1 || strings.TrimSpace(out) != "Something went wrong." {
		t.Fatalf("generate = %d %q", code, out)
	}
	if _, out, _ := runCLI(t, "quota"); !strings.Contains(out, "used 0 of 20") {
		t.Fatalf("failed generation was counted: %q", out)
	}
}

func TestUsagePrune(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	if code, out, _ := runCLI(t, "usage", "prune"); code != 0 || !strings.Contains(out, "removed 0") {
		t.Fatalf("usage prune = %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "usage"); code != 2 {
		t.Fatalf("usage without subcommand exit = %d", code)
	}
}

func TestListenWithSpeechDisabled(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1")
	t.Setenv("PROMPTBUDDY_SPEECH_DISABLED", "true")
	audio := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	code, out, errOut := runCLI(t, "listen", "-audio", audio)
	if code != 1 || out != "" || !strings.Contains(errOut, "Speech capture is disabled") {
		t.Fatalf("listen = %d %q %q", code, out, errOut)
	}

	if code, _, _ := runCLI(t, "login", idToken(t, "Ada", "ada@example.com")); code != 0 {
		t.Fatalf("login exit = %d", code)
	}
	if code, _, errOut := runCLI(t, "generate", "-audio", audio); code != 1 || !strings.Contains(errOut, "Speech capture is disabled") {
		t.Fatalf("generate -audio = %d %q", code, errOut)
	}
}
