package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"vozruta/internal/core"
	"vozruta/internal/export"
	"vozruta/internal/ledger"
)

type monthResponse struct {
	Month  string           `json:"month"`
	Prev   string           `json:"prev"`
	Next   string           `json:"next"`
	Counts map[string]int   `json:"counts"`
	Grid   []ledger.DayCell `json:"grid"`
}

type historyDayResponse struct {
	Date  string      `json:"date"`
	Trips []core.Trip `json:"trips"`
	core.DayAggregate
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ledger.MonthlySummary(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.MonthlySummaryRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleMonth returns the calendar grid of one month with trip counts.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	counts, err := s.ledger.DayCountsForMonth(r.Context(), month)
	if err != nil {
		fail(w, r, err)
		return
	}
	grid, err := ledger.MonthGrid(month, counts)
	if err != nil {
		fail(w, r, err)
		return
	}
	prev, _ := core.AddMonths(month, -1)
	next, _ := core.AddMonths(month, 1)
	writeJSON(w, http.StatusOK, monthResponse{Month: month, Prev: prev, Next: next, Counts: counts, Grid: grid})
}

// handleHistoryDay reads any day without changing the active one.
func (s *Server) handleHistoryDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	trips, err := s.ledger.TripsForDate(r.Context(), date)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyDayResponse{Date: date, Trips: trips, DayAggregate: core.Aggregate(trips)})
}

// handleExport renders one day as a share payload. Clients that accept JSON
// get the payload itself; everyone else gets the body as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	date := chi.URLParam(r, "date")
	trips, err := s.ledger.TripsForDate(r.Context(), date)
	if err != nil {
		fail(w, r, err)
		return
	}
	payload, err := export.Render(format, date, trips, export.Total(trips))
	if err != nil {
		fail(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, payload)
		return
	}
	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload.Body))
}
