// Package service implements the application's business logic between the HTTP layer and the store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bookdenapp/bookden-server/internal/domain"
	domainerrors "github.com/bookdenapp/bookden-server/internal/errors"
	"github.com/bookdenapp/bookden-server/internal/id"
	"github.com/bookdenapp/bookden-server/internal/store"
	"github.com/bookdenapp/bookden-server/internal/validation"
)

// BookIndexer keeps the search index in sync with book changes.
type BookIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopIndexer is a no-op implementation for testing.
type NoopIndexer struct{}

// IndexBook is a no-op.
func (NoopIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopIndexer) DeleteBook(context.Context, string) error { return nil }

// CreateBookInput carries a book submission from the JSON API.
// Only the title is mandatory on this path.
type CreateBookInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Authors     string `json:"authors"`
	FileCover   string `json:"file_cover"`
	FileName    string `json:"file_name"`
	FileBook    string `json:"file_book"`
	Favorite    bool   `json:"favorite"`
}

// BookForm carries a book submission from the web form, which demands the
// full descriptive set up front.
type BookForm struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Authors     string `json:"authors" validate:"required"`
	FileCover   string `json:"file_cover"`
	FileName    string `json:"file_name"`
	FileBook    string `json:"file_book"`
	Favorite    bool   `json:"favorite"`
}

// updateCheck re-validates the merged record after a patch is applied.
type updateCheck struct {
	Title string `json:"title" validate:"required"`
}

// BookService implements the book CRUD lifecycle.
type BookService struct {
	store     *store.Store
	indexer   BookIndexer
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a book service.
func NewBookService(s *store.Store, indexer BookIndexer, v *validation.Validator, logger *slog.Logger) *BookService {
	if indexer == nil {
		indexer = NoopIndexer{}
	}
	return &BookService{
		store:     s,
		indexer:   indexer,
		validator: v,
		logger:    logger,
	}
}

// CreateBook validates and stores a new book from the JSON API.
func (s *BookService) CreateBook(ctx context.Context, input CreateBookInput) (*domain.Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	return s.create(ctx, &domain.Book{
		Title:       input.Title,
		Description: input.Description,
		Authors:     input.Authors,
		FileCover:   input.FileCover,
		FileName:    input.FileName,
		FileBook:    input.FileBook,
		Favorite:    input.Favorite,
	})
}

// CreateBookFromForm validates and stores a new book from the web form,
// which requires title, description, and authors.
func (s *BookService) CreateBookFromForm(ctx context.Context, form BookForm) (*domain.Book, error) {
	form.Title = strings.TrimSpace(form.Title)
	form.Description = strings.TrimSpace(form.Description)
	form.Authors = strings.TrimSpace(form.Authors)
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}
	return s.create(ctx, &domain.Book{
		Title:       form.Title,
		Description: form.Description,
		Authors:     form.Authors,
		FileCover:   form.FileCover,
		FileName:    form.FileName,
		FileBook:    form.FileBook,
		Favorite:    form.Favorite,
	})
}

func (s *BookService) create(ctx context.Context, book *domain.Book) (*domain.Book, error) {
	bookID, err := id.Generate("bk")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate book id")
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, translateStoreErr(err)
	}

	if err := s.indexer.IndexBook(ctx, book); err != nil {
		// The book is persisted; a stale index entry is recoverable.
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
	return book, nil
}

// GetBook retrieves a book without counting the read as a view.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return book, nil
}

// ViewBook retrieves a book and counts the read as a view. The increment is
// atomic under concurrent viewers. A failed counter write does not fail the
// read; the fetched book is still returned.
func (s *BookService) ViewBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.IncrementViewCount(ctx, bookID)
	if err == nil {
		return book, nil
	}
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, translateStoreErr(err)
	}

	s.logger.Warn("failed to count view", "book_id", bookID, "error", err)
	return s.GetBook(ctx, bookID)
}

// ListBooks retrieves all books.
func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return books, nil
}

// UpdateBook applies a partial update to a book. Absent patch fields keep
// their stored values. When the merged record fails validation, the stored
// record is returned unchanged alongside the error.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, patch domain.BookPatch) (*domain.Book, error) {
	existing, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	merged := *existing
	patch.Apply(&merged)
	merged.Title = strings.TrimSpace(merged.Title)

	if err := s.validator.Validate(updateCheck{Title: merged.Title}); err != nil {
		return existing, err
	}

	merged.Touch()
	if err := s.store.UpdateBook(ctx, &merged); err != nil {
		return nil, translateStoreErr(err)
	}

	if err := s.indexer.IndexBook(ctx, &merged); err != nil {
		s.logger.Warn("failed to reindex book", "book_id", merged.ID, "error", err)
	}
	return &merged, nil
}

// DeleteBook removes a book. Its comments are left orphaned but readable.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return translateStoreErr(err)
	}

	if err := s.indexer.DeleteBook(ctx, bookID); err != nil {
		s.logger.Warn("failed to remove book from index", "book_id", bookID, "error", err)
	}
	return nil
}

// translateStoreErr maps store sentinels to domain errors. Unrecognized IDs
// and genuinely absent records both collapse to not-found.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return domainerrors.NotFound("book not found")
	case errors.Is(err, store.ErrBookExists):
		return domainerrors.Conflict("book already exists")
	default:
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "storage failure")
	}
}
