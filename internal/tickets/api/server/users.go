package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
	"github.com/go-chi/chi/v5"
)

// Регистрация пользователя
// (POST /api/v1/users).
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var req userservice.CreateUserRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	if fields := validateCreateUser(req); len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	u, err := s.userService.CreateUser(r.Context(), req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(u); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (GET /api/v1/users?skip&limit).
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	skip, limit, fields := paginationParams(r)
	if len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	users, err := s.userService.ListUsers(r.Context(), skip, limit)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(users); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (GET /api/v1/users/{id}).
func (s *Server) readUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	u, err := s.userService.GetUser(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(u); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (PUT /api/v1/users/{id}).
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	var req userservice.UpdateUserRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	if fields := validateUpdateUser(req); len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	u, err := s.userService.UpdateUser(r.Context(), id, req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(u); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// Возвращает удалённого пользователя; его тикеты уходят каскадом.
// (DELETE /api/v1/users/{id}).
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	id, err := idParam(r)
	if err != nil {
		handleError(w, err, http.StatusUnprocessableEntity)

		return
	}

	u, err := s.userService.DeleteUser(r.Context(), id)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(u); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// (POST /api/v1/users/{id}/tickets).
func (s *Server) createUserTicket(w http.ResponseWriter, r *http.Request) {
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

	t, err := s.ticketService.CreateForUser(r.Context(), id, req)
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

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse id error: %w", err)
	}

	return id, nil
}

func paginationParams(r *http.Request) (int, int, []FieldError) {
	var fields []FieldError

	skip := 0
	limit := 0

	if v := r.URL.Query().Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, FieldError{Field: "skip", Err: "must be a non-negative integer"})
		} else {
			skip = n
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fields = append(fields, FieldError{Field: "limit", Err: "must be a non-negative integer"})
		} else {
			limit = n
		}
	}

	return skip, limit, fields
}
