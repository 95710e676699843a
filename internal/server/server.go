package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/freeday/internal/handler"
	"github.com/dukerupert/freeday/internal/metrics"
	"github.com/dukerupert/freeday/internal/middleware"
	"github.com/dukerupert/freeday/internal/store"
	ws "github.com/dukerupert/freeday/internal/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the router knobs that come from the environment.
type Config struct {
	// WriteLimit is the number of availability writes allowed per client IP
	// per minute. Zero or less disables limiting.
	WriteLimit int
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	metrics       *metrics.Metrics
	personH       *handler.PersonHandler
	availabilityH *handler.AvailabilityHandler
	exportH       *handler.ExportHandler
	rateLimiter   *middleware.RateLimiter
	writeLimit    int
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"), m.BroadcastDropped)
	m.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "freeday_ws_subscribers",
		Help: "Connected change-notification subscribers",
	}, func() float64 { return float64(hub.ClientCount()) }))

	personStore := store.NewPersonStore(db)
	availabilityStore := store.NewAvailabilityStore(db)
	validate := validator.New()

	return &Server{
		db:            db,
		hub:           hub,
		metrics:       m,
		personH:       handler.NewPersonHandler(personStore, logger.With("component", "person")),
		availabilityH: handler.NewAvailabilityHandler(availabilityStore, personStore, hub, validate, logger.With("component", "availability")),
		exportH:       handler.NewExportHandler(availabilityStore, personStore, validate, logger.With("component", "export")),
		rateLimiter:   middleware.NewRateLimiter(),
		writeLimit:    cfg.WriteLimit,
		logger:        logger,
	}
}

// Hub returns the change-notification hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/people", s.personH.List)
	mux.HandleFunc("GET /api/people/{id}/unavailable.ics", s.exportH.UnavailableICS)
	mux.HandleFunc("GET /api/availability", s.availabilityH.List)
	mux.HandleFunc("PUT /api/availability", s.rateLimitedHandler(s.availabilityH.Upsert))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	var h http.Handler = mux
	h = middleware.Instrument(s.metrics)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health ping", "error", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":      status,
		"subscribers": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	if s.writeLimit <= 0 {
		return h
	}
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.writeLimit, time.Minute)
	return rl(h).ServeHTTP
}
