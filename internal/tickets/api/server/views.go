package server

import (
	"fmt"
	"net/http"

	"github.com/Leopold1975/tickets_control/internal/tickets/domain/models"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
)

type boardData struct {
	Title   string
	Tickets []models.Ticket
}

// Доска гостевых тикетов целиком.
// (GET /).
func (s *Server) boardPage(w http.ResponseWriter, r *http.Request) {
	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	tickets, err := s.ticketService.List(r.Context(), scope, 0, 0)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	s.render(w, "board.html", boardData{Title: "Home", Tickets: tickets})
}

// HTMX-фрагмент: новая строка доски.
// (POST /).
func (s *Server) boardCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := ticketForm(w, r)
	if !ok {
		return
	}

	t, err := s.ticketService.CreateForSession(r.Context(), sessionKeyFrom(r.Context()), req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	s.render(w, "ticket.html", t)
}

// HTMX-фрагмент: форма редактирования строки.
// (GET /{id}/).
func (s *Server) boardEdit(w http.ResponseWriter, r *http.Request) {
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

	s.render(w, "ticket_edit.html", t)
}

// (PUT /{id}/).
func (s *Server) boardUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	req, ok := ticketForm(w, r)
	if !ok {
		return
	}

	scope := ticketrepo.Scope{SessionKey: sessionKeyFrom(r.Context())} //nolint:exhaustruct

	t, err := s.ticketService.Update(r.Context(), scope, id, req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	s.render(w, "ticket.html", t)
}

// HTMX удаляет строку и ждёт пустой 200.
// (DELETE /{id}/).
func (s *Server) boardDelete(w http.ResponseWriter, r *http.Request) {
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

	w.WriteHeader(http.StatusOK)
}

// (GET /register/).
func (s *Server) registerPage(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "register.html", nil)
}

// (GET /login/).
func (s *Server) loginPage(w http.ResponseWriter, _ *http.Request) {
	s.render(w, "login.html", nil)
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.lg.Errorf("render %s error: %s", name, err.Error())
		handleError(w, errInternal, http.StatusInternalServerError)
	}
}

func ticketForm(w http.ResponseWriter, r *http.Request) (ticketservice.CreateTicketRequest, bool) {
	if err := r.ParseForm(); err != nil {
		handleError(w, fmt.Errorf("parse form error: %w", err), http.StatusUnprocessableEntity)

		return ticketservice.CreateTicketRequest{}, false
	}

	req := ticketservice.CreateTicketRequest{
		Title:       r.PostForm.Get("title"),
		Description: r.PostForm.Get("description"),
	}

	if fields := validateTicket(req); len(fields) != 0 {
		handleValidationError(w, fields)

		return ticketservice.CreateTicketRequest{}, false
	}

	return req, true
}
