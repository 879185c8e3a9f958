package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/Leopold1975/tickets_control/internal/pkg/jwtauth"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/authservice"
	"github.com/go-chi/chi/v5"
)

// OAuth2 password grant: форма username/password/scope.
// (POST /api/v1/auth/login/access-token).
func (s *Server) loginAccessToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	if err := r.ParseForm(); err != nil {
		handleError(w, fmt.Errorf("parse form error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	req := authservice.LoginRequest{ //nolint:exhaustruct
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}

	if scope := r.PostForm.Get("scope"); scope != "" {
		req.Scopes = strings.Fields(scope)
	}

	var fields []FieldError

	if req.Username == "" {
		fields = append(fields, FieldError{Field: "username", Err: "must not be empty"})
	}

	if req.Password == "" {
		fields = append(fields, FieldError{Field: "password", Err: "must not be empty"})
	}

	if len(fields) != 0 {
		handleValidationError(w, fields)

		return
	}

	token, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(TokenResponse{AccessToken: token, TokenType: "bearer"}); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

// Возвращает владельца токена; требует scope "me".
// (POST /api/v1/auth/login/test-token).
func (s *Server) testToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	token := bearerToken(r)
	if token == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		handleError(w, errTokenRequired, http.StatusUnauthorized)

		return
	}

	u, err := s.authService.CurrentUser(r.Context(), token, authservice.ScopeMe)
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

// (POST /api/v1/auth/password-recovery/{email}).
func (s *Server) recoverPassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	email := chi.URLParam(r, "email")
	if _, err := mail.ParseAddress(email); err != nil {
		handleValidationError(w, []FieldError{{Field: "email", Err: "must be a valid email address"}})

		return
	}

	if err := s.authService.RecoverPassword(r.Context(), email); err != nil {
		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(MsgResponse{Msg: "Password recovery email sent"}); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"` //nolint:tagliatelle
}

// (POST /api/v1/auth/reset-password/).
func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")

	var req resetPasswordRequest

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(&req); err != nil {
		handleError(w, fmt.Errorf("decode error: %w", err), http.StatusUnprocessableEntity)

		return
	}

	if len(req.NewPassword) < minPasswordLen {
		handleValidationError(w, []FieldError{{Field: "new_password", Err: "must be at least 8 characters"}})

		return
	}

	if err := s.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		// Негодный reset-токен — это 400, а не вызов на повторный логин.
		if errors.Is(err, jwtauth.ErrInvalidToken) {
			handleError(w, err, http.StatusBadRequest)

			return
		}

		s.handleServiceError(w, err)

		return
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(MsgResponse{Msg: "Password updated successfully"}); err != nil {
		handleError(w, fmt.Errorf("encode error: %w", err), http.StatusInternalServerError)

		return
	}
}

var errTokenRequired = errors.New("bearer token required")
