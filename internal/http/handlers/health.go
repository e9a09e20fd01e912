package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}

// Health reports liveness only; it never calls the provider.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Provider: a.Provider})
}
