// Package conversation keeps the rolling per-session conversation window.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"amli-assistant/internal/domain"
)

// DefaultLimit is the maximum number of turns kept per session.
const DefaultLimit = 20

// Store is the conversation state consumed by the chat service.
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	History(ctx context.Context, sessionID string) ([]domain.Turn, error)
}

// MemoryStore holds session windows in process memory. Entries are never
// expired; Sessions reports how many are tracked.
type MemoryStore struct {
	limit int

	mu       sync.RWMutex
	sessions map[string]*window
}

type window struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewMemoryStore creates a store keeping at most limit turns per session.
// A non-positive limit falls back to DefaultLimit.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit, sessions: make(map[string]*window)}
}

// Append adds turns in call order and trims the oldest beyond the limit.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...domain.Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("conversation: Append: session id is required")
	}
	w := s.window(sessionID)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, turns...)
	if over := len(w.turns) - s.limit; over > 0 {
		// Copy so the evicted prefix does not pin the backing array.
		w.turns = append([]domain.Turn(nil), w.turns[over:]...)
	}
	return nil
}

// History returns a copy of the session window, most recent last.
func (s *MemoryStore) History(_ context.Context, sessionID string) ([]domain.Turn, error) {
	s.mu.RLock()
	w, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.Turn(nil), w.turns...), nil
}

// Sessions returns the number of session windows held in memory.
func (s *MemoryStore) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) window(sessionID string) *window {
	s.mu.RLock()
	w, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return w
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok = s.sessions[sessionID]; ok {
		return w
	}
	w = &window{}
	s.sessions[sessionID] = w
	return w
}
