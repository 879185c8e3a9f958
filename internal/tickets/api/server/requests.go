package server

import (
	"net/mail"

	"github.com/Leopold1975/tickets_control/internal/tickets/services/ticketservice"
	"github.com/Leopold1975/tickets_control/internal/tickets/services/userservice"
)

const (
	maxUsernameLen = 100
	minPasswordLen = 8
)

func validateCreateUser(req userservice.CreateUserRequest) []FieldError {
	var fields []FieldError

	if l := len(req.Username); l < 1 || l > maxUsernameLen {
		fields = append(fields, FieldError{Field: "username", Err: "must be 1-100 characters"})
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields = append(fields, FieldError{Field: "email", Err: "must be a valid email address"})
	}

	if len(req.Password) < minPasswordLen {
		fields = append(fields, FieldError{Field: "password", Err: "must be at least 8 characters"})
	}

	return fields
}

func validateUpdateUser(req userservice.UpdateUserRequest) []FieldError {
	var fields []FieldError

	if req.Username != nil {
		if l := len(*req.Username); l < 1 || l > maxUsernameLen {
			fields = append(fields, FieldError{Field: "username", Err: "must be 1-100 characters"})
		}
	}

	if req.Email != nil {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			fields = append(fields, FieldError{Field: "email", Err: "must be a valid email address"})
		}
	}

	if req.Password != nil && len(*req.Password) < minPasswordLen {
		fields = append(fields, FieldError{Field: "password", Err: "must be at least 8 characters"})
	}

	return fields
}

func validateTicket(req ticketservice.CreateTicketRequest) []FieldError {
	var fields []FieldError

	if req.Title == "" {
		fields = append(fields, FieldError{Field: "title", Err: "must not be empty"})
	}

	return fields
}
