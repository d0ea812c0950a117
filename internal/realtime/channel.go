package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bookdenapp/bookden-server/internal/domain"
	"github.com/bookdenapp/bookden-server/internal/id"
)

// ErrChannelClosed is returned by Subscribe and Post after Shutdown.
var ErrChannelClosed = errors.New("realtime channel closed")

// CommentInput carries a comment submission from a subscriber.
type CommentInput struct {
	Text     string `json:"text"`
	Username string `json:"username"`
}

// CommentBackend validates and persists comments on behalf of the channel.
// Implemented by the comment service so the channel stays transport-only.
type CommentBackend interface {
	ListComments(ctx context.Context, bookID string) ([]*domain.Comment, error)
	AddComment(ctx context.Context, bookID string, input CommentInput) (*domain.Comment, error)
}

// Subscriber represents a connected SSE subscriber in a book room.
type Subscriber struct {
	ConnectedAt time.Time
	Events      chan Event
	Done        chan struct{}
	ID          string
	BookID      string
}

// Channel manages book rooms and fans out comment events to their subscribers.
type Channel struct {
	backend CommentBackend
	logger  *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	rooms       map[string]map[string]*Subscriber
	closed      bool

	// postMu serializes Post per book so room delivery order matches
	// persistence order.
	postMu sync.Mutex
	posts  map[string]*sync.Mutex
}

// NewChannel creates a new comment broadcast channel.
func NewChannel(backend CommentBackend, logger *slog.Logger) *Channel {
	return &Channel{
		backend:     backend,
		logger:      logger,
		subscribers: make(map[string]*Subscriber),
		rooms:       make(map[string]map[string]*Subscriber),
		posts:       make(map[string]*sync.Mutex),
	}
}

// Subscribe joins a book room and returns a subscriber whose Events channel
// has been seeded with a connection acknowledgement and the room's comment
// history. Unknown books join an empty room; only Post requires the book to
// exist.
func (c *Channel) Subscribe(ctx context.Context, bookID string) (*Subscriber, error) {
	history, err := c.backend.ListComments(ctx, bookID)
	if err != nil {
		return nil, err
	}

	subscriberID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:          subscriberID,
		BookID:      bookID,
		Events:      make(chan Event, 100), // Buffer 100 events per subscriber
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrChannelClosed
	}
	c.subscribers[sub.ID] = sub
	room, ok := c.rooms[bookID]
	if !ok {
		room = make(map[string]*Subscriber)
		c.rooms[bookID] = room
	}
	room[sub.ID] = sub
	roomSize := len(room)

	// Seed the subscriber's own channel while still holding the lock, so a
	// concurrent Shutdown cannot close Events between registration and
	// seeding. The buffer is empty here, so both sends cannot block.
	sub.Events <- NewConnectedEvent(sub.ID, bookID)
	sub.Events <- NewHistoryEvent(bookID, history)
	c.mu.Unlock()

	c.logger.Info("subscriber joined book room",
		slog.String("subscriber_id", sub.ID),
		slog.String("book_id", bookID),
		slog.Int("room_size", roomSize))
	return sub, nil
}

// Post validates and persists a comment through the backend, then fans it out
// to every subscriber in the book's room, including the sender. A failed
// validation or persistence broadcasts nothing.
func (c *Channel) Post(ctx context.Context, bookID string, input CommentInput) (*domain.Comment, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrChannelClosed
	}

	lock := c.postLock(bookID)
	lock.Lock()
	defer lock.Unlock()

	comment, err := c.backend.AddComment(ctx, bookID, input)
	if err != nil {
		return nil, err
	}

	c.broadcast(bookID, NewCommentEvent(comment))
	return comment, nil
}

// Unsubscribe removes a subscriber and closes its channels.
func (c *Channel) Unsubscribe(subscriberID string) {
	c.mu.Lock()
	sub, ok := c.subscribers[subscriberID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subscribers, subscriberID)
	if room, ok := c.rooms[sub.BookID]; ok {
		delete(room, subscriberID)
		if len(room) == 0 {
			delete(c.rooms, sub.BookID)
		}
	}
	c.mu.Unlock()

	close(sub.Done)
	close(sub.Events)

	c.logger.Info("subscriber left book room",
		slog.String("subscriber_id", subscriberID),
		slog.String("book_id", sub.BookID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)))
}

// SubscriberCount returns the number of connected subscribers across all rooms.
func (c *Channel) SubscriberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// RoomSize returns the number of subscribers in a book's room.
func (c *Channel) RoomSize(bookID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms[bookID])
}

// Shutdown disconnects all subscribers and rejects further activity.
func (c *Channel) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for _, sub := range c.subscribers {
		close(sub.Done)
		close(sub.Events)
	}
	c.subscribers = make(map[string]*Subscriber)
	c.rooms = make(map[string]map[string]*Subscriber)

	c.logger.Info("all subscribers disconnected")
	return nil
}

// broadcast sends an event to every subscriber in a book's room.
func (c *Channel) broadcast(bookID string, event Event) {
	var delivered, dropped int

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, sub := range c.rooms[bookID] {
		// Non-blocking send (drop if subscriber is slow/stuck).
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			c.logger.Warn("dropped event for slow subscriber",
				slog.String("subscriber_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	c.logger.Debug("event broadcast",
		slog.String("book_id", bookID),
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

// postLock returns the per-book mutex serializing posts to that book.
func (c *Channel) postLock(bookID string) *sync.Mutex {
	c.postMu.Lock()
	defer c.postMu.Unlock()

	lock, ok := c.posts[bookID]
	if !ok {
		lock = &sync.Mutex{}
		c.posts[bookID] = lock
	}
	return lock
}
