package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestBookPatch_Apply_PartialMerge(t *testing.T) {
	book := &Book{
		ID:          "bk-1",
		Title:       "Old Title",
		Description: "Old description",
		Authors:     "Old Author",
		Favorite:    false,
		ViewCount:   7,
	}

	patch := &BookPatch{
		Title:    strPtr("New Title"),
		Favorite: boolPtr(true),
	}
	patch.Apply(book)

	assert.Equal(t, "New Title", book.Title)
	assert.True(t, book.Favorite)
	// Unsupplied fields stay as they were.
	assert.Equal(t, "Old description", book.Description)
	assert.Equal(t, "Old Author", book.Authors)
	assert.EqualValues(t, 7, book.ViewCount)
}

func TestBookPatch_Apply_ExplicitEmpty(t *testing.T) {
	book := &Book{Title: "Title", Description: "Something"}

	// A pointer to "" is a real update, distinct from nil.
	patch := &BookPatch{Description: strPtr("")}
	patch.Apply(book)

	assert.Equal(t, "Title", book.Title)
	assert.Empty(t, book.Description)
}

func TestBookPatch_IsZero(t *testing.T) {
	assert.True(t, (&BookPatch{}).IsZero())
	assert.False(t, (&BookPatch{Title: strPtr("x")}).IsZero())
	assert.False(t, (&BookPatch{Favorite: boolPtr(false)}).IsZero())
}

func TestBook_Timestamps(t *testing.T) {
	book := &Book{}
	book.InitTimestamps()
	assert.False(t, book.CreatedAt.IsZero())
	assert.Equal(t, book.CreatedAt, book.UpdatedAt)

	time.Sleep(time.Millisecond)
	book.Touch()
	assert.True(t, book.UpdatedAt.After(book.CreatedAt))
}

func TestComment_NormalizeText(t *testing.T) {
	c := &Comment{Text: "  hello  "}
	assert.Equal(t, "hello", c.NormalizeText())
	assert.Equal(t, "hello", c.Text)

	blank := &Comment{Text: "   \t\n"}
	assert.Empty(t, blank.NormalizeText())
}
