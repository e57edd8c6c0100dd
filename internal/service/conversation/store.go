package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	model "github.com/naveenkul/pocket-soul/internal/model/conversation"
)

var ErrSessionNotFound = errors.New("session not found")

// DefaultHistoryLimit bounds how many recent turns feed the language model.
const DefaultHistoryLimit = 10

// Store keeps per-session conversation state. Full history is retained for
// the session's lifetime; only a bounded recent window is handed to the
// text-generation collaborator.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
	turns    map[string][]model.Turn
}

// NewStore bootstraps the in-memory conversation store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]model.Session),
		turns:    make(map[string][]model.Turn),
	}
}

// Create provisions a session bound to a connection.
func (s *Store) Create(_ context.Context, connectionID string) (model.Session, error) {
	session := model.Session{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.turns[session.ID] = make([]model.Turn, 0, 16)
	s.mu.Unlock()

	return session, nil
}

// Get retrieves a session by identifier.
func (s *Store) Get(_ context.Context, sessionID string) (model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Append adds a turn to the session history.
func (s *Store) Append(_ context.Context, turn model.Turn) error {
	if turn.SessionID == "" {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[turn.SessionID]; !ok {
		return ErrSessionNotFound
	}

	turn.ID = uuid.NewString()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

// Recent returns at most limit trailing turns for model context.
func (s *Store) Recent(_ context.Context, sessionID string, limit int) ([]model.Turn, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	start := 0
	if len(turns) > limit {
		start = len(turns) - limit
	}

	copied := make([]model.Turn, len(turns)-start)
	copy(copied, turns[start:])
	return copied, nil
}

// Transcript returns the full stored history for display and debugging.
func (s *Store) Transcript(_ context.Context, sessionID string) ([]model.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.turns[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]model.Turn, len(turns))
	copy(copied, turns)
	return copied, nil
}

// Reset clears the stored history while keeping the session alive.
func (s *Store) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	s.turns[sessionID] = s.turns[sessionID][:0]
	return nil
}

// Remove drops a session and its history once its connection closes.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	delete(s.turns, sessionID)
	s.mu.Unlock()
}

// Len reports the stored turn count for a session; missing sessions count 0.
func (s *Store) Len(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[sessionID])
}
