package http

import (
	"net/http"
	"strings"

	"vozruta/internal/core"
	"vozruta/internal/log"
	"vozruta/internal/services"
)

type tripResponse struct {
	Trip core.Trip   `json:"trip"`
	Day  dayResponse `json:"day"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sentence string `json:"sentence"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Sentence) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "sentence is required")
		return
	}
	writeJSON(w, http.StatusOK, s.entries.Parse(req.Sentence))
}

// handleVoiceTrip saves a recognised sentence into the selected section.
func (s *Server) handleVoiceTrip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sentence string `json:"sentence"`
		Section  string `json:"section"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	section, err := core.ParseSection(req.Section)
	if err != nil {
		fail(w, r, err)
		return
	}

	trip, err := s.entries.RecordSentence(r.Context(), req.Sentence, section)
	if err != nil {
		fail(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Voice trip recorded",
		log.NewFields().WithTrip(*trip.ID, trip.Date, string(trip.Section), trip.Amount).ToSlice()...)
	writeJSON(w, http.StatusCreated, tripResponse{Trip: trip, Day: newDayResponse(s.ledger.Snapshot())})
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req services.ManualEntry
	if !decodeJSON(w, r, &req) {
		return
	}
	trip, err := s.entries.RecordManual(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripResponse{Trip: trip, Day: newDayResponse(s.ledger.Snapshot())})
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := tripID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	trip, err := s.ledger.Trip(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// handleDeleteTrip answers with the reloaded day. Deleting an unknown id is
// not an error.
func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := tripID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := s.entries.DeleteTrip(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDayResponse(s.ledger.Snapshot()))
}
