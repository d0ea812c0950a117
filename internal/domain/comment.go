package domain

import (
	"strings"
	"time"
)

// Comment is a reader note attached to a book. Comments are append-only:
// they are never edited or deleted once persisted, and they outlive the
// book they reference.
type Comment struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
}

// NormalizeText trims surrounding whitespace from the comment text.
// Returns the trimmed text; an all-whitespace comment normalizes to "".
func (c *Comment) NormalizeText() string {
	c.Text = strings.TrimSpace(c.Text)
	return c.Text
}
