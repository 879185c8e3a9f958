package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Leopold1975/tickets_control/internal/pkg/jwtauth"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/ticketrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/repository/userrepo"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/authservice"
)

type Error struct {
	Err string `json:"error"`
}

func (se Error) ToJSON() []byte {
	b, err := json.Marshal(se)
	if err != nil {
		se.Err = err.Error()

		b, err := json.Marshal(se)
		if err != nil {
			return []byte(`{
				"error": "marshal error"
			  }`)
		}

		return b
	}

	return b
}

type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

type ValidationError struct {
	Err    string       `json:"error"`
	Fields []FieldError `json:"fields"`
}

func handleError(w http.ResponseWriter, err error, code int) {
	w.WriteHeader(code)

	e := Error{err.Error()}

	w.Write(e.ToJSON()) //nolint:errcheck
}

func handleValidationError(w http.ResponseWriter, fields []FieldError) {
	w.WriteHeader(http.StatusUnprocessableEntity)

	ve := ValidationError{Err: "validation failed", Fields: fields}

	b, err := json.Marshal(ve)
	if err != nil {
		w.Write(Error{err.Error()}.ToJSON()) //nolint:errcheck

		return
	}

	w.Write(b) //nolint:errcheck
}

// handleServiceError is the single place a domain error becomes a
// status code. Unknown errors leak nothing and come back as plain 500.
func (s *Server) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, userrepo.ErrAlreadyExists):
		handleError(w, err, http.StatusBadRequest)
	case errors.Is(err, userrepo.ErrNotFound),
		errors.Is(err, ticketrepo.ErrNotFound),
		errors.Is(err, ticketrepo.ErrOwnerNotFound):
		handleError(w, err, http.StatusNotFound)
	case errors.Is(err, authservice.ErrWrongCredentials),
		errors.Is(err, jwtauth.ErrInvalidToken),
		errors.Is(err, authservice.ErrInsufficientScope):
		w.Header().Set("WWW-Authenticate", "Bearer")
		handleError(w, err, http.StatusUnauthorized)
	case errors.Is(err, authservice.ErrInactiveUser),
		errors.Is(err, authservice.ErrNotAllowed):
		handleError(w, err, http.StatusBadRequest)
	default:
		s.lg.Errorf("internal error: %s", err.Error())
		handleError(w, errInternal, http.StatusInternalServerError)
	}
}

var errInternal = errors.New("internal server error")
