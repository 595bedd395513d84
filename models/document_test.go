package models

import (
	"testing"
	"time"
)

func TestIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiry",
			expiresAt: time.Now().Add(time.Hour),
			want:      false,
		},
		{
			name:      "past expiry",
			expiresAt: time.Now().Add(-time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &Document{Slug: "abc12345", ExpiresAt: tt.expiresAt}
			if got := doc.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEdit(t *testing.T) {
	doc := &Document{
		Slug:           "abc12345",
		Creator:        "user1",
		AllowedEditors: []string{"editor1", "editor2"},
	}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"creator can edit", "user1", true},
		{"allowed editor can edit", "editor1", true},
		{"second allowed editor can edit", "editor2", true},
		{"stranger cannot edit", "user2", false},
		{"empty identity cannot edit", "", false},
		{"anonymous identity cannot edit", AnonymousCreator, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.CanEdit(tt.userID); got != tt.want {
				t.Errorf("CanEdit(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestCanEdit_AnonymousDocument(t *testing.T) {
	doc := &Document{Slug: "abc12345", Creator: AnonymousCreator}
	if doc.CanEdit("user1") {
		t.Error("anonymous documents must not be editable")
	}
	if doc.CanEdit(AnonymousCreator) {
		t.Error("anonymous identity must not be able to edit anonymous documents")
	}
}

func TestCanDelete(t *testing.T) {
	doc := &Document{
		Slug:           "abc12345",
		Creator:        "user1",
		AllowedEditors: []string{"editor1"},
	}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"creator can delete", "user1", true},
		{"editor cannot delete", "editor1", false},
		{"stranger cannot delete", "user2", false},
		{"empty identity cannot delete", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doc.CanDelete(tt.userID); got != tt.want {
				t.Errorf("CanDelete(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestCanDelete_AnonymousDocument(t *testing.T) {
	doc := &Document{Slug: "abc12345", Creator: AnonymousCreator}
	if doc.CanDelete("user1") {
		t.Error("anonymous documents must not be deletable")
	}
}
