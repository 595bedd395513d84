// Package users resolves API tokens to user records. Account management is
// handled elsewhere; this service only reads identities and bumps the
// per-user document counter.
package users

import (
	"errors"

	"github.com/imperialbin/imperial/models"
)

// ErrNotFound is returned when no user matches a token or ID.
var ErrNotFound = errors.New("user not found")

// Store defines the identity-resolution backend
type Store interface {
	// FindByToken resolves an API token to a user record
	FindByToken(token string) (*models.User, error)

	// IncrementDocumentCount bumps the user's created-documents counter
	IncrementDocumentCount(userID string) error

	// Close closes the storage connection
	Close() error
}
