package users

import "github.com/imperialbin/imperial/models"

// Disabled is the identity backend used when no user database is configured.
// Every token resolves to nothing, so all requests are treated as anonymous.
type Disabled struct{}

// FindByToken always reports the token as unknown
func (Disabled) FindByToken(string) (*models.User, error) {
	return nil, ErrNotFound
}

// IncrementDocumentCount is a no-op
func (Disabled) IncrementDocumentCount(string) error {
	return nil
}

// Close is a no-op
func (Disabled) Close() error {
	return nil
}
