package ticketrepo

import "errors"

var (
	ErrNotFound      = errors.New("ticket not found")
	ErrOwnerNotFound = errors.New("ticket owner not found")
)

// Scope narrows ticket access to one owner: either a registered
// user's id or an anonymous session key, never both at once.
type Scope struct {
	OwnerID    int64
	SessionKey string
}

type ListRequest struct {
	Scope  Scope
	Offset int
	Limit  int
}
