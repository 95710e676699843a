package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/store"
)

type PersonHandler struct {
	store  *store.PersonStore
	logger *slog.Logger
}

func NewPersonHandler(s *store.PersonStore, logger *slog.Logger) *PersonHandler {
	return &PersonHandler{store: s, logger: logger}
}

// List returns the roster ordered by name. People are administered out of
// band, so there is no write endpoint.
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.store.List()
	if err != nil {
		h.logger.Error("list people", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list people"})
		return
	}
	if people == nil {
		people = []model.Person{}
	}
	writeJSON(w, http.StatusOK, people)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
