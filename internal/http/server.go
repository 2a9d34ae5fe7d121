// Package http exposes the day ledger, voice capture and history as a JSON
// API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"vozruta/internal/core"
	"vozruta/internal/ledger"
	"vozruta/internal/log"
	"vozruta/internal/services"
)

// DayLedger is the part of the ledger store the API reads and navigates.
type DayLedger interface {
	Snapshot() ledger.Day
	SelectDate(ctx context.Context, date string) error
	NextDay(ctx context.Context) error
	PrevDay(ctx context.Context) error
	Reload(ctx context.Context) error
	MonthlySummary(ctx context.Context) ([]core.MonthlySummaryRow, error)
	DayCountsForMonth(ctx context.Context, month string) (map[string]int, error)
	TripsForDate(ctx context.Context, date string) ([]core.Trip, error)
	Trip(ctx context.Context, id int64) (core.Trip, error)
}

// TripEntries records and removes trips.
type TripEntries interface {
	Parse(sentence string) core.ParseResult
	RecordSentence(ctx context.Context, sentence string, section core.Section) (core.Trip, error)
	RecordManual(ctx context.Context, in services.ManualEntry) (core.Trip, error)
	DeleteTrip(ctx context.Context, id int64) error
}

type Server struct {
	http.Server
	ledger      DayLedger
	entries     TripEntries
	logger      *log.Logger
	rateLimiter *rateLimiter
	security    *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithRateLimit sets how many writes a client may make per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter.stop()
		s.rateLimiter = newRateLimiter(perMinute)
	}
}

// NewServer wires the routes and returns a ready-to-run http.Server.
func NewServer(addr string, l DayLedger, entries TripEntries, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      l,
		entries:     entries,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(defaultRateLimit),
		security:    &securityMetrics{},
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Handler = s.routes(logger)
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(clientIP)
	r.Use(log.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.guard)

		r.Get("/day", s.handleDay)
		r.Post("/day/select", s.handleSelectDay)
		r.Post("/day/next", s.handleNextDay)
		r.Post("/day/prev", s.handlePrevDay)

		r.Post("/parse", s.handleParse)

		r.Post("/trips", s.handleCreateTrip)
		r.Post("/trips/voice", s.handleVoiceTrip)
		r.Get("/trips/{id}", s.handleGetTrip)
		r.Delete("/trips/{id}", s.handleDeleteTrip)

		r.Get("/history/summary", s.handleMonthlySummary)
		r.Get("/history/months/{month}", s.handleMonth)
		r.Get("/history/days/{date}", s.handleHistoryDay)

		r.Get("/export/{date}", s.handleExport)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// Shutdown stops the rate limiter cleanup and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
