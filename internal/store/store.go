package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Session is one lobby connection from connect to teardown.
type Session struct {
	ID        string
	Host      string
	Username  string
	StartedAt time.Time
	EndedAt   *time.Time
	Reason    string // teardown cause, empty for a user disconnect
}

// MessageKind classifies a logged line.
type MessageKind string

const (
	MessageKindChannel MessageKind = "channel"
	MessageKindPrivate MessageKind = "private"
	MessageKindServer  MessageKind = "server"
	MessageKindRing    MessageKind = "ring"
)

// Message is a persisted chat line or server notice.
type Message struct {
	ID        int64
	SessionID string
	Kind      MessageKind
	Channel   string // channel name, or the peer for private lines
	Sender    string
	Body      string
	CreatedAt time.Time
}

// MessageFilter narrows ListMessages. Zero fields match everything.
type MessageFilter struct {
	SessionID string
	Channel   string
	Kind      MessageKind
	Limit     int
	BeforeID  *int64
}

// SessionStore handles session persistence.
type SessionStore interface {
	// StartSession records a new session.
	StartSession(ctx context.Context, s *Session) error

	// EndSession stamps the end time and teardown reason of a session.
	EndSession(ctx context.Context, id string, endedAt time.Time, reason string) error

	// UpdateSessionUser records the name the server accepted.
	UpdateSessionUser(ctx context.Context, id, username string) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions lists the most recent sessions, newest first.
	ListSessions(ctx context.Context, limit int) ([]*Session, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages in chronological order.
	// If BeforeID is provided, returns messages older than that ID.
	// Limit determines max number of messages to return.
	ListMessages(ctx context.Context, filter MessageFilter) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	SessionStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
