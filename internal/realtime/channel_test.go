package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookdenapp/bookden-server/internal/domain"
	domainerrors "github.com/bookdenapp/bookden-server/internal/errors"
)

// fakeBackend is an in-memory CommentBackend for channel tests.
type fakeBackend struct {
	mu       sync.Mutex
	comments map[string][]*domain.Comment
	nextID   int
}

func newFakeBackend(bookIDs ...string) *fakeBackend {
	b := &fakeBackend{comments: make(map[string][]*domain.Comment)}
	for _, id := range bookIDs {
		b.comments[id] = []*domain.Comment{}
	}
	return b
}

func (b *fakeBackend) ListComments(_ context.Context, bookID string) ([]*domain.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	comments, ok := b.comments[bookID]
	if !ok {
		return []*domain.Comment{}, nil
	}
	return comments, nil
}

func (b *fakeBackend) AddComment(_ context.Context, bookID string, input CommentInput) (*domain.Comment, error) {
	if input.Text == "" {
		return nil, domainerrors.Validation("text is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.comments[bookID]; !ok {
		return nil, domainerrors.NotFound("book not found")
	}
	b.nextID++
	comment := &domain.Comment{
		ID:        fmt.Sprintf("cm-%03d", b.nextID),
		BookID:    bookID,
		Text:      input.Text,
		Username:  input.Username,
		CreatedAt: time.Now().UTC(),
	}
	b.comments[bookID] = append(b.comments[bookID], comment)
	return comment, nil
}

func newTestChannel(bookIDs ...string) *Channel {
	return NewChannel(newFakeBackend(bookIDs...), slog.New(slog.DiscardHandler))
}

// receiveEvent waits for the next event on a subscriber with a timeout.
func receiveEvent(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case event := <-sub.Events:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribe_SeedsConnectedAndHistory(t *testing.T) {
	ch := newTestChannel("bk-001")

	sub, err := ch.Subscribe(context.Background(), "bk-001")
	require.NoError(t, err)
	defer ch.Unsubscribe(sub.ID)

	connected := receiveEvent(t, sub)
	assert.Equal(t, EventConnected, connected.Type)

	history := receiveEvent(t, sub)
	require.Equal(t, EventHistory, history.Type)
	data, ok := history.Data.(HistoryEventData)
	require.True(t, ok)
	assert.Equal(t, "bk-001", data.BookID)
	assert.Empty(t, data.Comments)
}

func TestSubscribe_UnknownBookJoinsEmptyRoom(t *testing.T) {
	ch := newTestChannel("bk-001")

	sub, err := ch.Subscribe(context.Background(), "bk-missing")
	require.NoError(t, err)
	defer ch.Unsubscribe(sub.ID)

	receiveEvent(t, sub)
	history := receiveEvent(t, sub)
	require.Equal(t, EventHistory, history.Type)
	data, ok := history.Data.(HistoryEventData)
	require.True(t, ok)
	assert.Empty(t, data.Comments)
}

func TestPost_FansOutToRoomIncludingSender(t *testing.T) {
	ch := newTestChannel("bk-001")
	ctx := context.Background()

	sub1, err := ch.Subscribe(ctx, "bk-001")
	require.NoError(t, err)
	defer ch.Unsubscribe(sub1.ID)
	sub2, err := ch.Subscribe(ctx, "bk-001")
	require.NoError(t, err)
	defer ch.Unsubscribe(sub2.ID)

	// Drain the join events.
	for _, sub := range []*Subscriber{sub1, sub2} {
		receiveEvent(t, sub)
		receiveEvent(t, sub)
	}

	comment, err := ch.Post(ctx, "bk-001", CommentInput{Text: "hello room", Username: "alice"})
	require.NoError(t, err)
	require.NotNil(t, comment)

	for _, sub := range []*Subscriber{sub1, sub2} {
		event := receiveEvent(t, sub)
		require.Equal(t, EventCommentReceived, event.Type)
		data, ok := event.Data.(CommentEventData)
		require.True(t, ok)
		assert.Equal(t, "hello room", data.Comment.Text)
		assert.Equal(t, "alice", data.Comment.Username)
	}
}

func TestPost_DoesNotLeakAcrossRooms(t *testing.T) {
	ch := newTestChannel("bk-001", "bk-002")
	ctx := context.Background()

	other, err := ch.Subscribe(ctx, "bk-002")
	require.NoError(t, err)
	defer ch.Unsubscribe(other.ID)
	receiveEvent(t, other)
	receiveEvent(t, other)

	_, err = ch.Post(ctx, "bk-001", CommentInput{Text: "only for bk-001"})
	require.NoError(t, err)

	select {
	case event := <-other.Events:
		t.Fatalf("unexpected event in other room: %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPost_ValidationFailureBroadcastsNothing(t *testing.T) {
	ch := newTestChannel("bk-001")
	ctx := context.Background()

	sub, err := ch.Subscribe(ctx, "bk-001")
	require.NoError(t, err)
	defer ch.Unsubscribe(sub.ID)
	receiveEvent(t, sub)
	receiveEvent(t, sub)

	_, err = ch.Post(ctx, "bk-001", CommentInput{Text: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	select {
	case event := <-sub.Events:
		t.Fatalf("unexpected event after failed post: %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPost_BookNotFound(t *testing.T) {
	ch := newTestChannel("bk-001")

	_, err := ch.Post(context.Background(), "bk-missing", CommentInput{Text: "hi"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestUnsubscribe(t *testing.T) {
	ch := newTestChannel("bk-001")

	sub, err := ch.Subscribe(context.Background(), "bk-001")
	require.NoError(t, err)
	assert.Equal(t, 1, ch.RoomSize("bk-001"))

	ch.Unsubscribe(sub.ID)
	assert.Zero(t, ch.RoomSize("bk-001"))
	assert.Zero(t, ch.SubscriberCount())

	select {
	case <-sub.Done:
	default:
		t.Fatal("Done channel not closed")
	}

	// Unsubscribing twice is a no-op.
	ch.Unsubscribe(sub.ID)
}

func TestSubscribe_ConcurrentWithShutdown(t *testing.T) {
	ctx := context.Background()

	for range 100 {
		ch := newTestChannel("bk-001")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub, err := ch.Subscribe(ctx, "bk-001")
			if err != nil {
				assert.ErrorIs(t, err, ErrChannelClosed)
				return
			}
			// A successful join always has its seed events buffered before
			// shutdown can close the channel, so they are still readable.
			event := <-sub.Events
			assert.Equal(t, EventConnected, event.Type)
			event = <-sub.Events
			assert.Equal(t, EventHistory, event.Type)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, ch.Shutdown(ctx))
		}()
		wg.Wait()
	}
}

func TestShutdown(t *testing.T) {
	ch := newTestChannel("bk-001")
	ctx := context.Background()

	sub, err := ch.Subscribe(ctx, "bk-001")
	require.NoError(t, err)

	require.NoError(t, ch.Shutdown(ctx))

	select {
	case <-sub.Done:
	default:
		t.Fatal("Done channel not closed after shutdown")
	}

	_, err = ch.Subscribe(ctx, "bk-001")
	assert.ErrorIs(t, err, ErrChannelClosed)

	_, err = ch.Post(ctx, "bk-001", CommentInput{Text: "late"})
	assert.ErrorIs(t, err, ErrChannelClosed)

	// Shutdown is idempotent.
	require.NoError(t, ch.Shutdown(ctx))
}
