package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"is_active"`    //nolint:tagliatelle
	Superuser    bool      `json:"is_superuser"` //nolint:tagliatelle
	CreatedAt    time.Time `json:"created_at"`   //nolint:tagliatelle
	UpdatedAt    time.Time `json:"updated_at"`   //nolint:tagliatelle
}
