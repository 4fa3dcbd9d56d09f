package domain

import (
	"time"
	"unicode/utf8"
)

const maxTitleLength = 255

// Document is the metadata row that owns a set of chunks.
type Document struct {
	ID        int64
	OwnerID   *int64
	Title     string
	CreatedAt time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id int64, ownerID *int64, title string, createdAt time.Time) *Document {
	return &Document{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: createdAt,
	}
}

// OwnedBy reports whether the document is visible to ownerID. Documents
// without an owner are visible to everyone.
func (d *Document) OwnedBy(ownerID *int64) bool {
	if d.OwnerID == nil || ownerID == nil {
		return d.OwnerID == nil
	}
	return *d.OwnerID == *ownerID
}

// ValidateTitle checks the 1..255 character bound on document titles.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < 1 || n > maxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return ErrMissingRequiredField
	}
	if d.OwnerID != nil && *d.OwnerID <= 0 {
		return ErrInvalidOwnerID
	}
	return ValidateTitle(d.Title)
}
