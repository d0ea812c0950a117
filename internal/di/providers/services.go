package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookdenapp/bookden-server/internal/logger"
	"github.com/bookdenapp/bookden-server/internal/realtime"
	"github.com/bookdenapp/bookden-server/internal/service"
	"github.com/bookdenapp/bookden-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, searchHandle.Index, v, log.Logger), nil
}

// ProvideCommentService provides the comment service.
func ProvideCommentService(i do.Injector) (*service.CommentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCommentService(storeHandle.Store, v, log.Logger), nil
}

// ChannelHandle wraps the realtime channel with Shutdownable.
type ChannelHandle struct {
	*realtime.Channel
}

// Shutdown implements do.Shutdownable.
func (h *ChannelHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Channel.Shutdown(ctx)
}

// ProvideChannel provides the comment broadcast channel.
func ProvideChannel(i do.Injector) (*ChannelHandle, error) {
	commentService := do.MustInvoke[*service.CommentService](i)
	log := do.MustInvoke[*logger.Logger](i)

	channel := realtime.NewChannel(commentService, log.Logger)
	log.Info("Comment broadcast channel started")

	return &ChannelHandle{Channel: channel}, nil
}
