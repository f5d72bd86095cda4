// Package state holds session-scoped conversation storage. The
// orchestrator owns the dialogue state machine; this package only stores
// the append-only utterance transcript used as prompt context.
package state

import (
	"context"
	"sync"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one utterance in a session transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HistoryStore is the append-only transcript store. Recent returns the last
// n messages in arrival order; n <= 0 means all.
type HistoryStore interface {
	Append(ctx context.Context, sessionID string, msg Message) error
	Recent(ctx context.Context, sessionID string, n int) ([]Message, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryHistory is the in-process HistoryStore.
type MemoryHistory struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{messages: make(map[string][]Message)}
}

func (s *MemoryHistory) Append(_ context.Context, sessionID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], msg)
	return nil
}

func (s *MemoryHistory) Recent(_ context.Context, sessionID string, n int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryHistory) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}
