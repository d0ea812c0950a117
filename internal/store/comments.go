package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookdenapp/bookden-server/internal/domain"
)

const commentPrefix = "comment:"

// commentKey builds the storage key for a comment. The zero-padded creation
// timestamp sits between the book ID and the comment ID so a prefix scan
// yields comments in ascending creation order without sorting.
func commentKey(c *domain.Comment) []byte {
	return fmt.Appendf(nil, "%s%s:%020d:%s", commentPrefix, c.BookID, c.CreatedAt.UnixNano(), c.ID)
}

// commentBookPrefix returns the key prefix covering all comments of a book.
func commentBookPrefix(bookID string) []byte {
	return []byte(commentPrefix + bookID + ":")
}

// Comment Operations

// AddComment persists a comment under its book.
func (s *Store) AddComment(ctx context.Context, comment *domain.Comment) error {
	bookExists, err := s.BookExists(ctx, comment.BookID)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if !bookExists {
		return ErrBookNotFound
	}

	if err := s.set(commentKey(comment), comment); err != nil {
		return fmt.Errorf("add comment: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "comment added",
			slog.String("id", comment.ID),
			slog.String("book_id", comment.BookID),
		)
	}
	return nil
}

// ListCommentsByBook retrieves all comments for a book in ascending creation
// order. Unknown book IDs list empty rather than failing, so comments that
// outlive a deleted book stay readable.
func (s *Store) ListCommentsByBook(ctx context.Context, bookID string) ([]*domain.Comment, error) {
	comments := []*domain.Comment{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = commentBookPrefix(bookID)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var comment domain.Comment
				if err := json.Unmarshal(val, &comment); err != nil {
					return fmt.Errorf("unmarshal comment: %w", err)
				}
				comments = append(comments, &comment)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
