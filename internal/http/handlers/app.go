package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ankitjc/prompt-polish/internal/providers/completion"
)

// App holds the dependencies shared by the HTTP handlers.
type App struct {
	Completer completion.Completer
	Logger    zerolog.Logger
	// Provider is reported by the health check.
	Provider string
}

func NewApp(c completion.Completer, logger zerolog.Logger) *App {
	return &App{Completer: c, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

// MethodNotAllowed is the JSON 405 used by the router.
func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NotFound is the JSON 404 used by the router.
func (a *App) NotFound(w http.ResponseWriter, r *http.Request) {
	a.error(w, http.StatusNotFound, "Not found")
}
