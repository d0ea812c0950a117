// Package search provides full-text book search backed by a Bleve index.
package search

import (
	"github.com/bookdenapp/bookden-server/internal/domain"
)

// BookDocument is the indexed representation of a book.
type BookDocument struct {
	ID          string
	Title       string
	Description string
	Authors     string
	CreatedAt   int64
}

// NewBookDocument builds an index document from a book record.
func NewBookDocument(book *domain.Book) *BookDocument {
	return &BookDocument{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		Authors:     book.Authors,
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map so field names match the mapping (lowercase).
func (d *BookDocument) ToMap() map[string]any {
	return map[string]any{
		"id":          d.ID,
		"title":       d.Title,
		"description": d.Description,
		"authors":     d.Authors,
		"created_at":  d.CreatedAt,
	}
}
