package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookdenapp/bookden-server/internal/domain"
	domainerrors "github.com/bookdenapp/bookden-server/internal/errors"
	"github.com/bookdenapp/bookden-server/internal/id"
	"github.com/bookdenapp/bookden-server/internal/realtime"
	"github.com/bookdenapp/bookden-server/internal/store"
	"github.com/bookdenapp/bookden-server/internal/validation"
)

// defaultUsername is used when a comment arrives without one.
const defaultUsername = "anonymous"

// commentCheck validates a comment submission.
type commentCheck struct {
	Text     string `json:"text" validate:"required,max=2000"`
	Username string `json:"username" validate:"max=100"`
}

// CommentService validates and persists comments. It is the backend behind
// the realtime channel.
type CommentService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCommentService creates a comment service.
func NewCommentService(s *store.Store, v *validation.Validator, logger *slog.Logger) *CommentService {
	return &CommentService{
		store:     s,
		validator: v,
		logger:    logger,
	}
}

var _ realtime.CommentBackend = (*CommentService)(nil)

// ListComments returns a book's comments in ascending creation order.
func (s *CommentService) ListComments(ctx context.Context, bookID string) ([]*domain.Comment, error) {
	comments, err := s.store.ListCommentsByBook(ctx, bookID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return comments, nil
}

// AddComment validates and persists a comment on a book.
func (s *CommentService) AddComment(ctx context.Context, bookID string, input realtime.CommentInput) (*domain.Comment, error) {
	comment := &domain.Comment{
		BookID:   bookID,
		Text:     input.Text,
		Username: input.Username,
	}
	comment.NormalizeText()
	if comment.Username == "" {
		comment.Username = defaultUsername
	}

	if err := s.validator.Validate(commentCheck{Text: comment.Text, Username: comment.Username}); err != nil {
		return nil, err
	}

	commentID, err := id.Generate("cm")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate comment id")
	}
	comment.ID = commentID
	comment.CreatedAt = time.Now().UTC()

	if err := s.store.AddComment(ctx, comment); err != nil {
		return nil, translateStoreErr(err)
	}
	return comment, nil
}
