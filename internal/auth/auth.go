package auth

import "context"

// Caller is the authenticated identity attached to a request. All
// authorization decisions downstream re-derive roles from stored membership
// rows; the Caller only carries who is asking.
type Caller struct {
	ID    string
	Email string
	Name  string
}

// SessionLookup resolves an opaque session token to the user it belongs to.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*Caller, error)
}
