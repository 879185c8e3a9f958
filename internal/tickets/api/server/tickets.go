package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
)

// Тикеты гостевой сессии: scope задаёт session-кука,
// чужие тикеты отсюда не видны.
// (GET /api/v1/tickets).
func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	skip, limit, fields := paginationParams(r)
	if len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	tickets, err := s.ticketService.List(r.Context(), scope, skip, limit)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(tickets); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (POST /api/v1/tickets).
func (s *Server) createTicket(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var req ticketservice.CreateTicketRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	if fields := validateTicket(req); len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	t, err := s.ticketService.CreateForSession(r.Context(), sessionKeyFrom(r.Context()), req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(t); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (GET /api/v1/tickets/{id}).
func (s *Server) readTicket(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	t, err := s.ticketService.Get(r.Context(), scope, id)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(t); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (PUT /api/v1/tickets/{id}).
func (s *Server) updateTicket(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	var req ticketservice.CreateTicketRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	if fields := validateTicket(req); len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	t, err := s.ticketService.Update(r.Context(), scope, id, req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(t); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (DELETE /api/v1/tickets/{id}).
func (s *Server) deleteTicket(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	if err := s.ticketService.Delete(r.Context(), scope, id); err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(MsgResponse{Msg: "Ticket deleted"}); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}
