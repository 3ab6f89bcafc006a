package session

import (
	"context"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// InMemory is a volatile Session implementation storing messages in a
// process local slice. It is safe for concurrent access and best suited for
// tests or short-lived conversations.
type InMemory struct {
	mu    sync.RWMutex
	items []core.Message
}

var _ Session = (*InMemory)(nil)

// NewInMemory constructs an empty in-memory session.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// GetItems implements Session.
func (s *InMemory) GetItems(ctx context.Context, limit int) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(s.items) {
		start = len(s.items) - limit
	}

	out := make([]core.Message, len(s.items)-start)
	copy(out, s.items[start:])

	return out, nil
}

// AddItems implements Session.
func (s *InMemory) AddItems(ctx context.Context, items []core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, items...)

	return nil
}

// PopItem implements Session.
func (s *InMemory) PopItem(ctx context.Context) (*core.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, nil
	}

	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]

	return &last, nil
}

// Clear implements Session.
func (s *InMemory) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil

	return nil
}
