package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookdenapp/bookden-server/internal/domain"
)

const bookPrefix = "book:"

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookExists   = errors.New("book already exists")
)

// incrementRetries bounds the conflict retry loop in IncrementViewCount.
// Conflicts only happen when concurrent views race on the same book, so a
// handful of retries is plenty.
const incrementRetries = 16

// Book Operations

// CreateBook creates a new book
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	// Check if it already exists
	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	if err := s.set(key, book); err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
		)
	}
	return nil
}

// GetBook retrieves a book by ID
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	key := []byte(bookPrefix + id)

	var book domain.Book
	err := s.get(key, &book)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// ListBooks retrieves all books ordered by ID.
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	var books []*domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var book domain.Book
				if err := json.Unmarshal(val, &book); err != nil {
					return fmt.Errorf("unmarshal book: %w", err)
				}
				books = append(books, &book)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// UpdateBook replaces an existing book record.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}

	if err := s.set(key, book); err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "book updated",
			slog.String("id", book.ID),
		)
	}
	return nil
}

// DeleteBook removes a book record. Comments for the book are left in place;
// they stay retrievable through ListCommentsByBook after the book is gone.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	key := []byte(bookPrefix + id)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !exists {
		return ErrBookNotFound
	}

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book deleted",
			slog.String("id", id),
		)
	}
	return nil
}

// BookExists reports whether a book with the given ID is stored.
func (s *Store) BookExists(ctx context.Context, id string) (bool, error) {
	return s.exists([]byte(bookPrefix + id))
}

// IncrementViewCount atomically increments a book's view counter and returns
// the updated record. The read-modify-write runs inside a single serializable
// transaction, retried on write conflict, so concurrent views never lose an
// increment.
func (s *Store) IncrementViewCount(ctx context.Context, id string) (*domain.Book, error) {
	key := []byte(bookPrefix + id)

	var book domain.Book
	for range incrementRetries {
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}

			err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			})
			if err != nil {
				return err
			}

			book.ViewCount++
			data, err := json.Marshal(&book)
			if err != nil {
				return fmt.Errorf("marshal book: %w", err)
			}
			return txn.Set(key, data)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("increment view count: %w", err)
		}
		return &book, nil
	}
	return nil, fmt.Errorf("increment view count: %w", badger.ErrConflict)
}
