package storage

import (
	"errors"

	"github.com/imperialbin/imperial/models"
)

// ErrNotFound is returned when no live document exists for a slug.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateSlug is returned by Insert when the slug is already taken.
// Callers retry with a freshly generated slug.
var ErrDuplicateSlug = errors.New("duplicate slug")

// DocumentStore defines the interface for document storage backends. The
// store is a dumb persistence layer: access control and encryption policy
// live above it. Insert must be atomic on slug uniqueness; backends must
// never do a read-then-write existence check.
type DocumentStore interface {
	// Insert saves a new document, rejecting duplicate slugs.
	Insert(doc *models.Document) error

	// Get retrieves a live document by slug. Expired documents are treated
	// as not found (and reaped opportunistically).
	Get(slug string) (*models.Document, error)

	// ListByCreator returns all documents owned by a creator.
	ListByCreator(creator string) ([]*models.Document, error)

	// UpdateContent replaces the stored content of a document.
	UpdateContent(slug, content string) error

	// Delete removes a document.
	Delete(slug string) error

	// DeleteByCreator removes every document owned by a creator and
	// reports how many were removed.
	DeleteByCreator(creator string) (int, error)

	// Close closes the storage connection
	Close() error
}
