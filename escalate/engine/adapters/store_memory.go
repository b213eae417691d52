package adapters

import (
	"context"
	"sync"
	"time"

	ports "github.com/triagelab/escalate/escalate/engine/ports"
)

// MemoryStateStore implements StateStore with an in-process map. It is the
// default backend and the degraded-mode fallback when a durable backend is
// unreachable.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]ports.ConversationState
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]ports.ConversationState),
	}
}

// Get returns the stored state, or a zeroed state for unknown conversations.
func (s *MemoryStateStore) Get(ctx context.Context, conversationID string) (ports.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[conversationID], nil
}

// Put overwrites the conversation's state.
func (s *MemoryStateStore) Put(ctx context.Context, conversationID string, state ports.ConversationState) error {
	state.UpdatedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[conversationID] = state
	return nil
}

// Reset clears the conversation back to the zeroed state.
func (s *MemoryStateStore) Reset(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, conversationID)
	return nil
}

// Ensure MemoryStateStore implements the StateStore port.
var _ ports.StateStore = (*MemoryStateStore)(nil)
