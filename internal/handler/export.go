package handler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/export"
	"github.com/dukerupert/freeday/internal/store"
	"github.com/go-playground/validator/v10"
)

type ExportHandler struct {
	availability *store.AvailabilityStore
	people       *store.PersonStore
	validate     *validator.Validate
	logger       *slog.Logger
	now          func() time.Time
}

func NewExportHandler(as *store.AvailabilityStore, ps *store.PersonStore, validate *validator.Validate, logger *slog.Logger) *ExportHandler {
	if validate == nil {
		validate = validator.New()
	}
	return &ExportHandler{availability: as, people: ps, validate: validate, logger: logger, now: time.Now}
}

// UnavailableICS serves a person's unavailable days as an iCalendar feed.
// Without from/to it covers the current month and the next two.
func (h *ExportHandler) UnavailableICS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	person, err := h.people.GetByID(id)
	if err != nil {
		h.logger.Error("get person", "person_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get person")
		return
	}
	if person == nil {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}

	now := h.now().UTC()
	q := rangeQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if q.From == "" {
		q.From = calendar.ISODate(calendar.StartOfMonth(now))
	}
	if q.To == "" {
		q.To = calendar.ISODate(calendar.EndOfMonth(calendar.StartOfMonth(now).AddDate(0, 2, 0)))
	}
	if !checkRange(h.validate, w, q) {
		return
	}

	rows, err := h.availability.ListForPerson(person.ID, q.From, q.To)
	if err != nil {
		h.logger.Error("list person availability", "person_id", person.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list availability")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, export.UnavailableCalendar(*person, rows, now)); err != nil {
		h.logger.Error("render ics", "person_id", person.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "unavailable-"+person.ID+".ics"))
	w.Write(buf.Bytes())
}
