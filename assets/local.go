package assets

import (
	"os"
	"path/filepath"
)

// LocalStore keeps rendered images in a directory on disk
type LocalStore struct {
	dir string
}

// NewLocalStore creates a local asset store rooted at dir
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir}, nil
}

func (l *LocalStore) path(slug string) string {
	return filepath.Join(l.dir, slug+".jpg")
}

// Put saves the rendered JPEG for a document
func (l *LocalStore) Put(slug string, image []byte) error {
	return os.WriteFile(l.path(slug), image, 0o644)
}

// Remove deletes the rendered image for a document. A missing image is not
// an error; most documents never had one rendered.
func (l *LocalStore) Remove(slug string) error {
	err := os.Remove(l.path(slug))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
