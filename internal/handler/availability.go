package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/store"
	"github.com/dukerupert/freeday/internal/websocket"
	"github.com/go-playground/validator/v10"
)

// maxRangeDays bounds a single range query; the client asks for 42 days.
const maxRangeDays = 400

type AvailabilityHandler struct {
	availability *store.AvailabilityStore
	people       *store.PersonStore
	hub          *websocket.Hub
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewAvailabilityHandler(as *store.AvailabilityStore, ps *store.PersonStore, hub *websocket.Hub, validate *validator.Validate, logger *slog.Logger) *AvailabilityHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &AvailabilityHandler{
		availability: as,
		people:       ps,
		hub:          hub,
		validate:     validate,
		logger:       logger,
	}
}

type rangeQuery struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

type upsertRequest struct {
	PersonID  string `json:"person_id" validate:"required,max=64"`
	Day       string `json:"day" validate:"required,datetime=2006-01-02"`
	Available *bool  `json:"available" validate:"required"`
}

func (h *AvailabilityHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// parseRange validates ?from=&to= and returns the inclusive bounds.
func (h *AvailabilityHandler) parseRange(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := rangeQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if !checkRange(h.validate, w, q) {
		return "", "", false
	}
	return q.From, q.To, true
}

// checkRange writes a 400 and returns false unless q is an ordered range of
// at most maxRangeDays.
func checkRange(validate *validator.Validate, w http.ResponseWriter, q rangeQuery) bool {
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD dates")
		return false
	}

	from, _ := calendar.ParseISODate(q.From, time.UTC)
	to, _ := calendar.ParseISODate(q.To, time.UTC)
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "from must not be after to")
		return false
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		writeError(w, http.StatusBadRequest, "range too large")
		return false
	}
	return true
}

// List returns every row with from <= day <= to.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.parseRange(w, r)
	if !ok {
		return
	}

	rows, err := h.availability.ListRange(from, to)
	if err != nil {
		h.logger.Error("list availability", "from", from, "to", to, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}
	if rows == nil {
		rows = []model.AvailabilityRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// Upsert writes one (person, day) status and notifies subscribers.
func (h *AvailabilityHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "person_id, day (YYYY-MM-DD) and available are required")
		return
	}

	person, err := h.people.GetByID(req.PersonID)
	if err != nil {
		h.logger.Error("get person", "person_id", req.PersonID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check person")
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}

	row, err := h.availability.Upsert(req.PersonID, req.Day, *req.Available)
	if err != nil {
		h.logger.Error("upsert availability", "person_id", req.PersonID, "day", req.Day, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save availability")
		return
	}

	h.broadcast(websocket.AvailabilityMessage(*row))
	writeJSON(w, http.StatusOK, row)
}
