package realtime

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/bookdenapp/bookden-server/internal/errors"
)

// Handler streams book room events at GET /api/v1/books/{bookID}/comments/stream.
type Handler struct {
	channel *Channel
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(channel *Channel, logger *slog.Logger) *Handler {
	return &Handler{
		channel: channel,
		logger:  logger,
	}
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	// Check if request context is already canceled (early client disconnect).
	if r.Context().Err() != nil {
		return
	}

	// Join the room before committing to the stream so setup failures still
	// get a plain error response.
	sub, err := h.channel.Subscribe(r.Context(), bookID)
	if err != nil {
		status := http.StatusInternalServerError
		var domainErr *domainerrors.Error
		if domainerrors.As(err, &domainErr) {
			status = domainErr.HTTPStatus()
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer h.channel.Unsubscribe(sub.ID)

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	rc := http.NewResponseController(w)

	// Flush headers immediately.
	if err := rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	subLogger := h.logger.With(
		slog.String("subscriber_id", sub.ID),
		slog.String("book_id", bookID))

	ctx := r.Context()

	// Send periodic heartbeat to keep connection alive (every 30 seconds).
	heartbeatTicker := time.NewTicker(30 * time.Second)
	defer heartbeatTicker.Stop()

	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				// Channel closed this subscriber (server shutdown).
				subLogger.Info("subscriber closed by channel")
				return
			}
			if err := h.sendEvent(w, rc, event); err != nil {
				// Client disconnect is normal, not an error condition.
				subLogger.Info("subscriber disconnected during send")
				return
			}

		case <-heartbeatTicker.C:
			if err := h.sendEvent(w, rc, NewHeartbeatEvent()); err != nil {
				subLogger.Info("subscriber disconnected during heartbeat")
				return
			}

		case <-sub.Done:
			// Channel closed this subscriber (server shutdown).
			subLogger.Info("subscriber closed by channel")
			return

		case <-ctx.Done():
			// Client disconnected.
			subLogger.Info("subscriber context canceled")
			return
		}
	}
}

// sendEvent writes an SSE event to the response writer using json/v2.
func (h *Handler) sendEvent(w http.ResponseWriter, rc *http.ResponseController, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event.Type); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return err
	}

	// Flush immediately so client receives the event.
	if err := rc.Flush(); err != nil {
		return err
	}

	// Set write deadline for keepalive (prevents hung connections).
	// Reset after each successful write.
	if err := rc.SetWriteDeadline(time.Now().Add(60 * time.Second)); err != nil {
		// SetWriteDeadline may not be supported by all ResponseWriters.
		h.logger.Debug("failed to set write deadline", slog.String("error", err.Error()))
	}

	return nil
}
