package model

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
)

var (
	// ErrSessionNotFound is returned when appending to or reading an identity
	// that has no session yet.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorruption means the pinned system entry is missing. The
	// session must be reset; the error never propagates past the orchestrator.
	ErrSessionCorruption = errors.New("session corrupted")
)

// SessionStore keeps the bounded per-identity history sent to the generation
// service. Index 0 is always the pinned system entry, followed by at most the
// configured number of trailing entries. Implementations serialise access per
// identity.
type SessionStore interface {
	// GetOrCreate returns the existing session or seeds one with systemPrompt.
	GetOrCreate(ctx context.Context, identity string, systemPrompt string) (*Session, error)

	// Append adds one entry and evicts the oldest non-pinned entries beyond the bound.
	Append(ctx context.Context, identity string, message *schema.Message) error

	// AppendTurn appends the user entry then the assistant entry, each followed
	// by eviction, without letting another append for identity interleave.
	AppendTurn(ctx context.Context, identity string, user, assistant *schema.Message) error

	// History returns the full bounded history in stored order.
	History(ctx context.Context, identity string) ([]*schema.Message, error)

	// Reset replaces the session with a fresh one holding only systemPrompt.
	Reset(ctx context.Context, identity string, systemPrompt string) error
}

// Session is a snapshot of one identity's history.
type Session struct {
	Identity string
	Messages []*schema.Message
}

// Pinned returns the system entry at index 0.
func (s *Session) Pinned() *schema.Message {
	if s == nil || len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[0]
}
