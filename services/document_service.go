package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/imperialbin/imperial/config"
	"github.com/imperialbin/imperial/cryptox"
	"github.com/imperialbin/imperial/metrics"
	"github.com/imperialbin/imperial/models"
	"github.com/imperialbin/imperial/storage"
	"github.com/imperialbin/imperial/utils"
)

// maxSlugAttempts bounds the insert-retry loop on slug collisions.
const maxSlugAttempts = 10

// Renderer is the external screenshot collaborator. Calls are
// fire-and-forget; failures are logged and never fail the document
// operation that triggered them.
type Renderer interface {
	RenderAndStore(slug string, quality int) error
	Remove(slug string) error
}

// UserDirectory is the slice of the identity collaborator the lifecycle
// needs: bumping the creator's document counter.
type UserDirectory interface {
	IncrementDocumentCount(userID string) error
}

// DocumentService orchestrates the document lifecycle: create, read, edit,
// delete and bulk purge.
type DocumentService struct {
	store    storage.DocumentStore
	users    UserDirectory
	renderer Renderer
	metrics  *metrics.Metrics
	config   *config.Config

	// GenerateSlug is swappable so tests can force collisions.
	GenerateSlug func(length int) (string, error)
}

// NewDocumentService creates a new document service. users, renderer and
// m may be nil; the corresponding side effects are skipped.
func NewDocumentService(store storage.DocumentStore, users UserDirectory, renderer Renderer, m *metrics.Metrics, cfg *config.Config) *DocumentService {
	return &DocumentService{
		store:        store,
		users:        users,
		renderer:     renderer,
		metrics:      m,
		config:       cfg,
		GenerateSlug: utils.GenerateSlug,
	}
}

// CreateOptions carries the document settings accepted at creation time
type CreateOptions struct {
	LongerURL      bool
	ImageEmbed     bool
	ExpirationDays int
	InstantDelete  bool
	Quality        int
	Encrypted      bool
	Password       string
}

// CreateResult is returned from a successful create. Password is set only
// for encrypted documents and is the single time the passphrase is ever
// disclosed.
type CreateResult struct {
	Slug          string
	ExpiresAt     time.Time
	InstantDelete bool
	Encrypted     bool
	Password      string
}

// Create stores a new document for creator (or models.AnonymousCreator)
// and returns its slug and expiry.
func (s *DocumentService) Create(creator, content string, opts CreateOptions) (*CreateResult, error) {
	if content == "" {
		return nil, ErrMissingContent
	}

	days := opts.ExpirationDays
	if days <= 0 {
		days = s.config.DefaultExpiryDays
	}
	if days > s.config.MaxExpiryDays {
		days = s.config.MaxExpiryDays
	}

	now := time.Now()
	doc := &models.Document{
		Content:        content,
		Creator:        creator,
		AllowedEditors: []string{},
		ImageEmbed:     opts.ImageEmbed,
		InstantDelete:  opts.InstantDelete,
		Quality:        opts.Quality,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(days) * 24 * time.Hour),
	}

	var password string
	if opts.Encrypted {
		password = opts.Password
		if password == "" {
			generated, err := utils.GeneratePassphrase()
			if err != nil {
				return nil, fmt.Errorf("failed to generate passphrase: %w", err)
			}
			password = generated
		}

		iv, err := cryptox.NewInitVector()
		if err != nil {
			return nil, fmt.Errorf("failed to generate init vector: %w", err)
		}
		ciphertext, err := cryptox.Encrypt(cryptox.DeriveKey(password), iv, []byte(content))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt content: %w", err)
		}
		doc.Encrypted = true
		doc.EncryptedIV = iv
		doc.Content = ciphertext
	}

	length := utils.SlugLengthShort
	if opts.LongerURL {
		length = utils.SlugLengthLong
	}

	if err := s.insertWithFreshSlug(doc, length); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DocumentsCreated.Inc()
	}

	if creator != models.AnonymousCreator && s.users != nil {
		if err := s.users.IncrementDocumentCount(creator); err != nil {
			log.Printf("[ERROR] failed to increment document count for %s: %v", creator, err)
		}
	}

	// Fire-and-forget: a renderer failure must not fail the create
	if s.renderer != nil && opts.ImageEmbed && !opts.InstantDelete && !opts.Encrypted {
		go func(slug string, quality int) {
			if err := s.renderer.RenderAndStore(slug, quality); err != nil {
				log.Printf("[ERROR] failed to render document %s: %v", slug, err)
			}
		}(doc.Slug, opts.Quality)
	}

	return &CreateResult{
		Slug:          doc.Slug,
		ExpiresAt:     doc.ExpiresAt,
		InstantDelete: doc.InstantDelete,
		Encrypted:     doc.Encrypted,
		Password:      password,
	}, nil
}

// insertWithFreshSlug generates slugs until the store accepts one.
// Uniqueness is settled by the store's atomic insert, never by a
// check-then-insert read.
func (s *DocumentService) insertWithFreshSlug(doc *models.Document, length int) error {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug, err := s.GenerateSlug(length)
		if err != nil {
			return fmt.Errorf("failed to generate slug: %w", err)
		}
		doc.Slug = slug

		err = s.store.Insert(doc)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrDuplicateSlug) {
			continue
		}
		return fmt.Errorf("failed to store document: %w", err)
	}
	return ErrSlugExhausted
}

// Read returns the plaintext content of a document. Encrypted documents
// require the passphrase they were created with.
func (s *DocumentService) Read(slug, password string) (string, error) {
	doc, err := s.get(slug)
	if err != nil {
		return "", err
	}

	if !doc.Encrypted {
		return doc.Content, nil
	}
	if password == "" {
		return "", ErrPassphraseRequired
	}

	plaintext, err := cryptox.Decrypt(cryptox.DeriveKey(password), doc.EncryptedIV, doc.Content)
	if err != nil {
		if s.metrics != nil {
			s.metrics.DecryptFailures.Inc()
		}
		return "", ErrIncorrectPassphrase
	}
	return string(plaintext), nil
}

// Edit replaces a document's content. Encrypted documents are rejected
// outright, before any access check, so even the owner gets the same answer.
func (s *DocumentService) Edit(userID, slug, newContent string) (*models.Document, error) {
	if newContent == "" {
		return nil, ErrMissingContent
	}

	doc, err := s.get(slug)
	if err != nil {
		return nil, err
	}
	if doc.Encrypted {
		return nil, ErrEncryptedImmutable
	}
	if !doc.CanEdit(userID) {
		return nil, ErrForbidden
	}

	if err := s.store.UpdateContent(slug, newContent); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	doc.Content = newContent
	return doc, nil
}

// Delete removes a single document. Only the creator may delete; the
// rendered image artifact is cleaned up best-effort.
func (s *DocumentService) Delete(userID, slug string) error {
	doc, err := s.get(slug)
	if err != nil {
		return err
	}
	if !doc.CanDelete(userID) {
		return ErrForbidden
	}

	if err := s.store.Delete(slug); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DocumentsDeleted.Inc()
	}
	s.removeArtifact(doc)
	return nil
}

// DeleteAll removes every document owned by userID and returns how many
// were removed.
func (s *DocumentService) DeleteAll(userID string) (int, error) {
	docs, err := s.store.ListByCreator(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(docs) == 0 {
		return 0, ErrNothingToDelete
	}

	deleted, err := s.store.DeleteByCreator(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to purge documents: %w", err)
	}

	if s.metrics != nil {
		s.metrics.DocumentsDeleted.Add(float64(deleted))
	}
	for _, doc := range docs {
		s.removeArtifact(doc)
	}
	return deleted, nil
}

func (s *DocumentService) get(slug string) (*models.Document, error) {
	doc, err := s.store.Get(slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}
	return doc, nil
}

// removeArtifact clears the rendered image for a document, fire-and-forget.
func (s *DocumentService) removeArtifact(doc *models.Document) {
	if s.renderer == nil || !doc.ImageEmbed {
		return
	}
	go func(slug string) {
		if err := s.renderer.Remove(slug); err != nil {
			log.Printf("[ERROR] failed to remove asset for %s: %v", slug, err)
		}
	}(doc.Slug)
}
