package models

import "time"

// Ticket belongs to exactly one owner: a registered user (OwnerID)
// or an anonymous browser session (SessionKey). Never both.
type Ticket struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     int64     `json:"owner_id,omitempty"` //nolint:tagliatelle
	SessionKey  string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"` //nolint:tagliatelle
	UpdatedAt   time.Time `json:"updated_at"` //nolint:tagliatelle
}
