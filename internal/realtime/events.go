// Package realtime implements Server-Sent Events for live comment fan-out on book rooms.
package realtime

import (
	"time"

	"github.com/bookdenapp/bookden-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected acknowledges a newly established subscription.
	EventConnected EventType = "connected"
	// EventHistory delivers the full comment history of a book room on join.
	EventHistory EventType = "history"
	// EventCommentReceived announces a newly posted comment to a book room.
	EventCommentReceived EventType = "comment.received"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to subscribers.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// ConnectedEventData is the data payload for connection acknowledgements.
type ConnectedEventData struct {
	SubscriberID string `json:"subscriber_id"`
	BookID       string `json:"book_id"`
}

// HistoryEventData is the data payload for comment history snapshots.
type HistoryEventData struct {
	BookID   string            `json:"book_id"`
	Comments []*domain.Comment `json:"comments"`
}

// CommentEventData is the data payload for new comment events.
type CommentEventData struct {
	Comment *domain.Comment `json:"comment"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewConnectedEvent builds a connection acknowledgement event.
func NewConnectedEvent(subscriberID, bookID string) Event {
	return Event{
		Type:      EventConnected,
		Timestamp: time.Now().UTC(),
		Data:      ConnectedEventData{SubscriberID: subscriberID, BookID: bookID},
	}
}

// NewHistoryEvent builds a history snapshot event for a book room.
func NewHistoryEvent(bookID string, comments []*domain.Comment) Event {
	return Event{
		Type:      EventHistory,
		Timestamp: time.Now().UTC(),
		Data:      HistoryEventData{BookID: bookID, Comments: comments},
	}
}

// NewCommentEvent builds a comment fan-out event.
func NewCommentEvent(comment *domain.Comment) Event {
	return Event{
		Type:      EventCommentReceived,
		Timestamp: time.Now().UTC(),
		Data:      CommentEventData{Comment: comment},
	}
}

// NewHeartbeatEvent builds a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now().UTC(),
		Data:      HeartbeatEventData{ServerTime: time.Now().UTC()},
	}
}
