package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookdenapp/bookden-server/internal/config"
	"github.com/bookdenapp/bookden-server/internal/logger"
	"github.com/bookdenapp/bookden-server/internal/search"
)

// SearchIndexHandle wraps search.Index with Shutdownable.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the full-text book index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	idx, err := search.NewIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &SearchIndexHandle{Index: idx}, nil
}

// BackfillSearchIndex reindexes all stored books. Run at startup so the index
// catches up with writes that happened while it was unavailable.
func BackfillSearchIndex(i do.Injector) error {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	ctx := context.Background()
	books, err := storeHandle.ListBooks(ctx)
	if err != nil {
		return err
	}

	for _, book := range books {
		if err := searchHandle.IndexBook(ctx, book); err != nil {
			log.Warn("Failed to backfill book into search index", "book_id", book.ID, "error", err)
		}
	}

	log.Info("Search index backfilled", "books", len(books))
	return nil
}
