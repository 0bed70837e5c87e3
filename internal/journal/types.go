// Package journal records session lifecycle events for operational audit.
// It stores which sessions ran and how they ended, never any conversation
// content or audio.
package journal

import (
	"context"
	"time"
)

// Record is one lifecycle entry for a relay session.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves session lifecycle records.
type Store interface {
	Append(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
