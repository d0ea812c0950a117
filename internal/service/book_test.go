package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookdenapp/bookden-server/internal/domain"
	domainerrors "github.com/bookdenapp/bookden-server/internal/errors"
	"github.com/bookdenapp/bookden-server/internal/store"
	"github.com/bookdenapp/bookden-server/internal/validation"
)

func setupServices(t *testing.T) (*BookService, *CommentService) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	v := validation.New()
	logger := slog.New(slog.DiscardHandler)
	return NewBookService(st, nil, v, logger), NewCommentService(st, v, logger)
}

func TestCreateBook(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "The Go Programming Language"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(book.ID, "bk-"))
	assert.Equal(t, "The Go Programming Language", book.Title)
	assert.Equal(t, int64(0), book.ViewCount)
	assert.False(t, book.CreatedAt.IsZero())

	got, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
}

func TestCreateBook_TitleOnlyIsEnough(t *testing.T) {
	books, _ := setupServices(t)

	book, err := books.CreateBook(context.Background(), CreateBookInput{Title: "Minimal"})
	require.NoError(t, err)
	assert.Empty(t, book.Description)
	assert.Empty(t, book.Authors)
}

func TestCreateBook_MissingTitle(t *testing.T) {
	books, _ := setupServices(t)

	_, err := books.CreateBook(context.Background(), CreateBookInput{Description: "no title"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "title is required", domainErr.Message)
}

func TestCreateBook_WhitespaceTitle(t *testing.T) {
	books, _ := setupServices(t)

	_, err := books.CreateBook(context.Background(), CreateBookInput{Title: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestCreateBookFromForm(t *testing.T) {
	books, _ := setupServices(t)

	book, err := books.CreateBookFromForm(context.Background(), BookForm{
		Title:       "Complete",
		Description: "All fields present",
		Authors:     "Someone",
	})
	require.NoError(t, err)
	assert.Equal(t, "Someone", book.Authors)
}

func TestCreateBookFromForm_RequiresFullSet(t *testing.T) {
	books, _ := setupServices(t)

	_, err := books.CreateBookFromForm(context.Background(), BookForm{Title: "Only Title"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "description is required, authors is required", domainErr.Message)
}

func TestGetBook_NotFound(t *testing.T) {
	books, _ := setupServices(t)

	_, err := books.GetBook(context.Background(), "bk-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestGetBook_MalformedID(t *testing.T) {
	books, _ := setupServices(t)

	// A nonsense ID is indistinguishable from an absent record.
	_, err := books.GetBook(context.Background(), "not-a-real-id!!!")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestViewBook_IncrementsViewCount(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "Popular"})
	require.NoError(t, err)

	viewed, err := books.ViewBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), viewed.ViewCount)

	// A raw read does not count as a view.
	got, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ViewCount)

	viewed, err = books.ViewBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), viewed.ViewCount)
}

func TestViewBook_ConcurrentViewersLoseNothing(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "Contended"})
	require.NoError(t, err)

	const viewers = 25
	var wg sync.WaitGroup
	wg.Add(viewers)
	for range viewers {
		go func() {
			defer wg.Done()
			_, err := books.ViewBook(ctx, book.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(viewers), got.ViewCount)
}

func TestUpdateBook_PartialPatch(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{
		Title:       "Original",
		Description: "keep me",
		Authors:     "keep me too",
	})
	require.NoError(t, err)

	favorite := true
	updated, err := books.UpdateBook(ctx, book.ID, domain.BookPatch{Favorite: &favorite})
	require.NoError(t, err)
	assert.True(t, updated.Favorite)
	assert.Equal(t, "Original", updated.Title)
	assert.Equal(t, "keep me", updated.Description)
}

func TestUpdateBook_ExplicitEmptyField(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "Has Description", Description: "soon gone"})
	require.NoError(t, err)

	empty := ""
	updated, err := books.UpdateBook(ctx, book.ID, domain.BookPatch{Description: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Description)
}

func TestUpdateBook_InvalidPatchLeavesRecordUntouched(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "Stable"})
	require.NoError(t, err)

	empty := ""
	got, err := books.UpdateBook(ctx, book.ID, domain.BookPatch{Title: &empty})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	require.NotNil(t, got)
	assert.Equal(t, "Stable", got.Title)

	stored, err := books.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Stable", stored.Title)
	assert.Equal(t, book.UpdatedAt, stored.UpdatedAt)
}

func TestUpdateBook_NotFound(t *testing.T) {
	books, _ := setupServices(t)

	title := "New Title"
	_, err := books.UpdateBook(context.Background(), "bk-missing", domain.BookPatch{Title: &title})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestDeleteBook(t *testing.T) {
	books, comments := setupServices(t)
	ctx := context.Background()

	book, err := books.CreateBook(ctx, CreateBookInput{Title: "Doomed"})
	require.NoError(t, err)

	_, err = comments.AddComment(ctx, book.ID, realtimeInput("a comment"))
	require.NoError(t, err)

	require.NoError(t, books.DeleteBook(ctx, book.ID))

	_, err = books.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	list, err := comments.ListComments(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteBook_NotFound(t *testing.T) {
	books, _ := setupServices(t)

	err := books.DeleteBook(context.Background(), "bk-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestListBooks(t *testing.T) {
	books, _ := setupServices(t)
	ctx := context.Background()

	list, err := books.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, title := range []string{"One", "Two", "Three"} {
		_, err := books.CreateBook(ctx, CreateBookInput{Title: title})
		require.NoError(t, err)
	}

	list, err = books.ListBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
