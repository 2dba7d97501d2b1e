package session

import (
	"context"
	"sync"
	"time"

	"github.com/reslab/reslab/logging"
)

// InMemoryStore is a volatile Store implementation keeping sessions in a
// process local map. It is safe for concurrent access. Each returned session
// is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get returns an existing session (clone) or creates a new one lazily.
func (s *InMemoryStore) Get(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return s.createLocked(sessionID).Clone(), nil
}

// Create forces the creation (or overwriting) of a session with the given id.
func (s *InMemoryStore) Create(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(sessionID).Clone(), nil
}

// AppendTurn adds a turn to an existing or newly created session.
func (s *InMemoryStore) AppendTurn(sessionID string, t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	sess.AppendTurn(t)
	return nil
}

// ApplyState merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyState(sessionID string, delta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	for k, v := range delta {
		sess.SetState(k, v)
	}
	return nil
}

// EvictIdle removes sessions whose last activity is older than the given
// duration and returns the number of evicted sessions.
func (s *InMemoryStore) EvictIdle(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.Updated.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

// RunJanitor periodically evicts idle sessions until the context is
// cancelled. Intended to run in its own goroutine next to the server.
func (s *InMemoryStore) RunJanitor(ctx context.Context, interval, idleTTL time.Duration, logger logging.Logger) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(idleTTL); n > 0 {
				logger.Info("session.janitor.evicted", "count", n, "idle_ttl", idleTTL.String())
			}
		}
	}
}

// createLocked allocates and stores a new session; caller must already hold
// the lock.
func (s *InMemoryStore) createLocked(sessionID string) *Session {
	sess := NewSession(sessionID)
	s.sessions[sessionID] = sess
	return sess
}
