package models

import (
	"time"
)

// AnonymousCreator is the sentinel creator ID for documents made without an
// API token. Anonymous documents cannot be edited or deleted; they only go
// away when they expire.
const AnonymousCreator = "anonymous"

// Document represents a stored paste/document in the system
type Document struct {
	Slug           string    `json:"slug" bson:"_id"`
	Content        string    `json:"-" bson:"content"`
	Creator        string    `json:"creator" bson:"creator"`
	AllowedEditors []string  `json:"allowed_editors" bson:"allowed_editors"`
	ImageEmbed     bool      `json:"image_embed" bson:"image_embed"`
	InstantDelete  bool      `json:"instant_delete" bson:"instant_delete"`
	Quality        int       `json:"quality" bson:"quality"`
	Encrypted      bool      `json:"encrypted" bson:"encrypted"`
	EncryptedIV    string    `json:"-" bson:"encrypted_iv,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" bson:"expires_at"`
}

// IsExpired checks if the document has expired
func (d *Document) IsExpired() bool {
	return time.Now().After(d.ExpiresAt)
}

// CanEdit reports whether userID may edit this document. The creator and any
// allowed editor may edit; anonymous documents are immutable.
func (d *Document) CanEdit(userID string) bool {
	if userID == "" || userID == AnonymousCreator || d.Creator == AnonymousCreator {
		return false
	}
	if userID == d.Creator {
		return true
	}
	for _, editor := range d.AllowedEditors {
		if editor == userID {
			return true
		}
	}
	return false
}

// CanDelete reports whether userID may delete this document. Only the
// creator may delete; editors cannot.
func (d *Document) CanDelete(userID string) bool {
	if userID == "" || userID == AnonymousCreator || d.Creator == AnonymousCreator {
		return false
	}
	return userID == d.Creator
}
