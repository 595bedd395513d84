package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/imperialbin/imperial/models"
)

// FilesystemStore implements DocumentStore with one JSON file per document.
// Intended for single-node deployments and local development.
type FilesystemStore struct {
	dataDir string
	mu      sync.Mutex
}

// NewFilesystemStore creates a new filesystem storage backend rooted at dataDir
func NewFilesystemStore(dataDir string) (*FilesystemStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FilesystemStore{dataDir: dataDir}, nil
}

func (fs *FilesystemStore) path(slug string) string {
	return filepath.Join(fs.dataDir, slug+".json")
}

// Insert saves a new document. O_EXCL makes file creation the atomic
// uniqueness check; a leftover expired file is reaped and the create retried
// once.
func (fs *FilesystemStore) Insert(doc *models.Document) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(fs.path(doc.Slug), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, werr := f.Write(data); werr != nil {
				_ = f.Close()
				_ = os.Remove(fs.path(doc.Slug))
				return werr
			}
			return f.Close()
		}
		if !os.IsExist(err) {
			return err
		}
		existing, rerr := fs.read(doc.Slug)
		if rerr == nil && existing != nil && !existing.IsExpired() {
			return ErrDuplicateSlug
		}
		// Corrupt or expired leftover: remove and retry the create
		_ = os.Remove(fs.path(doc.Slug))
	}
	return ErrDuplicateSlug
}

// read loads a document file without expiry handling. Caller holds the lock
// or tolerates races.
func (fs *FilesystemStore) read(slug string) (*models.Document, error) {
	data, err := os.ReadFile(fs.path(slug))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get retrieves a live document by its slug
func (fs *FilesystemStore) Get(slug string) (*models.Document, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read(slug)
	if err != nil {
		return nil, err
	}
	if doc.IsExpired() {
		_ = os.Remove(fs.path(slug))
		return nil, ErrNotFound
	}
	return doc, nil
}

// ListByCreator returns all documents owned by a creator
func (fs *FilesystemStore) ListByCreator(creator string) ([]*models.Document, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	docs, err := fs.scan()
	if err != nil {
		return nil, err
	}

	var owned []*models.Document
	for _, doc := range docs {
		if doc.Creator == creator {
			owned = append(owned, doc)
		}
	}
	return owned, nil
}

// UpdateContent replaces the stored content of a document
func (fs *FilesystemStore) UpdateContent(slug, content string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc, err := fs.read(slug)
	if err != nil {
		return err
	}
	if doc.IsExpired() {
		_ = os.Remove(fs.path(slug))
		return ErrNotFound
	}

	doc.Content = content
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fs.path(slug), data, 0o644)
}

// Delete removes a document
func (fs *FilesystemStore) Delete(slug string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	err := os.Remove(fs.path(slug))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// DeleteByCreator removes every document owned by a creator
func (fs *FilesystemStore) DeleteByCreator(creator string) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	docs, err := fs.scan()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if doc.Creator != creator {
			continue
		}
		if err := os.Remove(fs.path(doc.Slug)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// DeleteExpired removes expired documents. Called from the periodic sweep;
// the other backends rely on native TTL instead.
func (fs *FilesystemStore) DeleteExpired() (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	docs, err := fs.scan()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, doc := range docs {
		if !doc.IsExpired() {
			continue
		}
		if err := os.Remove(fs.path(doc.Slug)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// scan parses every document file in the data directory. Caller holds the lock.
func (fs *FilesystemStore) scan() ([]*models.Document, error) {
	entries, err := os.ReadDir(fs.dataDir)
	if err != nil {
		return nil, err
	}

	var docs []*models.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(fs.dataDir, entry.Name()))
		if err != nil {
			continue
		}
		var doc models.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

// Close is a no-op for the filesystem backend
func (fs *FilesystemStore) Close() error {
	return nil
}
