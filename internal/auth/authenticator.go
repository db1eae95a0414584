package auth

import (
	"context"
)

// Identity is the authenticated staff member attached to a request.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods
// without changing the handler code.
type Authenticator interface {
	// Authenticate verifies the credentials and returns the identity if successful.
	// Returns ErrInvalidCredentials if they do not match a stored user.
	Authenticate(ctx context.Context, username, credential string) (Identity, error)
}
