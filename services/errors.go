package services

import "errors"

// Lifecycle error taxonomy. Handlers map these to distinct user-facing
// responses; wrong-passphrase and not-found in particular must never
// collapse into a generic failure.
var (
	// ErrMissingContent is returned when create or edit receives no content.
	ErrMissingContent = errors.New("missing content")

	// ErrNotFound is returned when no live document exists for a slug.
	ErrNotFound = errors.New("document not found")

	// ErrForbidden is returned when the acting identity lacks rights for
	// the operation.
	ErrForbidden = errors.New("operation not allowed")

	// ErrEncryptedImmutable is returned by edit on an encrypted document.
	// Encrypted documents are immutable for everyone, including the owner.
	ErrEncryptedImmutable = errors.New("encrypted documents cannot be edited")

	// ErrPassphraseRequired is returned by read on an encrypted document
	// when no passphrase was supplied.
	ErrPassphraseRequired = errors.New("passphrase required")

	// ErrIncorrectPassphrase is returned by read when decryption fails.
	// Wrong passphrase and corrupted data are deliberately indistinguishable.
	ErrIncorrectPassphrase = errors.New("incorrect passphrase")

	// ErrSlugExhausted is returned when slug generation keeps colliding.
	// Practically unreachable given the alphabet size, but bounded.
	ErrSlugExhausted = errors.New("could not generate a unique slug")

	// ErrNothingToDelete is returned by bulk delete for an identity that
	// owns no documents.
	ErrNothingToDelete = errors.New("no documents to delete")
)
