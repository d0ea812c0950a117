// Package domain contains the core business entities for the BookDen library.
package domain

import "time"

// Book represents a catalog entry in the library.
type Book struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Authors     string    `json:"authors,omitempty"`
	FileCover   string    `json:"file_cover,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	FileBook    string    `json:"file_book,omitempty"`
	ViewCount   int64     `json:"view_count"`
	Favorite    bool      `json:"favorite"`
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (b *Book) Touch() {
	b.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (b *Book) InitTimestamps() {
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// BookPatch enumerates exactly the mutable fields of a Book.
// Nil means "leave unchanged"; a pointer to the zero value is a real update.
// Identity, view count, and timestamps are not patchable.
type BookPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Authors     *string `json:"authors"`
	Favorite    *bool   `json:"favorite"`
	FileCover   *string `json:"file_cover"`
	FileName    *string `json:"file_name"`
	FileBook    *string `json:"file_book"`
}

// Apply merges the supplied fields into b, leaving the rest untouched.
func (p *BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Authors != nil {
		b.Authors = *p.Authors
	}
	if p.Favorite != nil {
		b.Favorite = *p.Favorite
	}
	if p.FileCover != nil {
		b.FileCover = *p.FileCover
	}
	if p.FileName != nil {
		b.FileName = *p.FileName
	}
	if p.FileBook != nil {
		b.FileBook = *p.FileBook
	}
}

// IsZero reports whether the patch carries no changes at all.
func (p *BookPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.Authors == nil &&
		p.Favorite == nil && p.FileCover == nil && p.FileName == nil && p.FileBook == nil
}
