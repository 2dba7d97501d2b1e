// Package session holds in-process conversation state. A session is an
// append-only, ordered sequence of utterance/response pairs plus a small
// string state map used to personalize prompts. Sessions live for the process
// lifetime only; the store is injected into the coordinator rather than held
// as ambient state, and idle sessions are explicitly evicted.
package session

import (
	"sync"
	"time"

	"github.com/reslab/reslab/model"
)

// Turn is one completed utterance/response pair.
type Turn struct {
	ID        string    `json:"id"`
	Utterance string    `json:"utterance"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a conversational container tracking mutable key/value
// state plus an ordered turn history. It is safe for concurrent access.
//
// Contract:
//   - Turn appends and state mutations update the Updated timestamp
//   - Turns returns a defensive copy to avoid external mutation
//   - Clone performs deep copies of maps/slices for safe divergence.
type Session struct {
	ID      string            `json:"id"`
	State   map[string]string `json:"state"`
	Turns   []Turn            `json:"turns"`
	Created time.Time         `json:"created"`
	Updated time.Time         `json:"updated"`
	mu      sync.RWMutex
}

// NewSession creates a new session with the given ID.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, State: map[string]string{}, Turns: []Turn{}, Created: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (s *Session) GetState(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.State[key]
	return v, ok
}

// SetState sets a key/value pair in session state updating the Updated timestamp.
func (s *Session) SetState(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State[key] = value
	s.Updated = time.Now()
}

// AppendTurn appends a completed turn to the history, preserving submission
// order, and updates the Updated timestamp.
func (s *Session) AppendTurn(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	s.Turns = append(s.Turns, t)
	s.Updated = time.Now()
}

// GetTurns returns a defensive copy of the full turn history.
func (s *Session) GetTurns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// History renders the turn history as alternating user/assistant messages
// suitable for providing conversational context to the model.
func (s *Session) History() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]model.Message, 0, len(s.Turns)*2)
	for _, t := range s.Turns {
		msgs = append(msgs, model.Message{Role: "user", Text: t.Utterance})
		if t.Response != "" {
			msgs = append(msgs, model.Message{Role: "assistant", Text: t.Response})
		}
	}
	return msgs
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:      s.ID,
		State:   make(map[string]string, len(s.State)),
		Turns:   make([]Turn, len(s.Turns)),
		Created: s.Created,
		Updated: s.Updated,
	}
	for k, v := range s.State {
		clone.State[k] = v
	}
	copy(clone.Turns, s.Turns)
	return clone
}

// Store persists sessions and their evolving state / turn history.
type Store interface {
	Create(id string) (*Session, error)
	Get(id string) (*Session, error)
	AppendTurn(sessionID string, t Turn) error
	ApplyState(sessionID string, delta map[string]string) error
	EvictIdle(olderThan time.Duration) int
}
