package http

import (
	"context"
	"net/http"
	"time"

	"vozruta/internal/core"
	"vozruta/internal/ledger"
	"vozruta/internal/log"
)

// dayResponse is the active day with its running totals.
type dayResponse struct {
	Date  string      `json:"date"`
	Trips []core.Trip `json:"trips"`
	core.DayAggregate
}

func newDayResponse(d ledger.Day) dayResponse {
	trips := d.Trips
	if trips == nil {
		trips = []core.Trip{}
	}
	return dayResponse{Date: d.Date, Trips: trips, DayAggregate: core.Aggregate(trips)}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reads the active day straight from storage without making
// it active again.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, httpStatus := "ready", http.StatusOK
	checks := map[string]any{}

	if _, err := s.ledger.TripsForDate(ctx, s.ledger.Snapshot().Date); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.activeClients(),
		"hits":           s.security.rateLimitHits.Load(),
	}
	checks["suspicious_requests"] = s.security.suspiciousRequests.Load()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newDayResponse(s.ledger.Snapshot()))
}

func (s *Server) handleSelectDay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.SelectDate(r.Context(), req.Date); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayResponse(s.ledger.Snapshot()))
}

func (s *Server) handleNextDay(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.ledger.NextDay)
}

func (s *Server) handlePrevDay(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.ledger.PrevDay)
}

func (s *Server) navigate(w http.ResponseWriter, r *http.Request, step func(context.Context) error) {
	if err := step(r.Context()); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayResponse(s.ledger.Snapshot()))
}
