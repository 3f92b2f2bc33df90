// Package store defines the persistence boundary for relayed chat history.
//
// Only delivered chat lines are recorded. Session and channel state is
// deliberately never persisted: a restarted server comes up empty.
package store

import (
	"context"
	"time"
)

// Message is one relayed chat line.
type Message struct {
	ID        int64
	Channel   string
	Nickname  string
	Body      string
	CreatedAt time.Time
}

// Store persists relayed chat lines.
type Store interface {
	// SaveMessage records one delivered chat line.
	SaveMessage(ctx context.Context, m *Message) error
	// RecentMessages returns up to limit messages for channel, newest
	// first.
	RecentMessages(ctx context.Context, channel string, limit int) ([]Message, error)
	// Close releases the underlying resources.
	Close() error
}
