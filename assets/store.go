// Package assets stores rendered document screenshots. Removal is
// best-effort; document deletion never waits on it.
package assets

// Store defines the artifact storage backend for rendered images
type Store interface {
	// Put saves the rendered JPEG for a document
	Put(slug string, image []byte) error

	// Remove deletes the rendered image for a document, if any
	Remove(slug string) error
}
