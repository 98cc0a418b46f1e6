// Package store keeps chat sessions in memory. Sessions are ephemeral
// by design; nothing survives a process restart.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/chat"
	"github.com/calmihq/calmi/pkg/core/persona"
)

// Session is one chat conversation and its persona.
type Session struct {
	ID        string
	Profile   persona.Profile
	CreatedAt time.Time
	LastSeen  time.Time
	messages  []chat.Message
}

// Store is an in-memory session registry, safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// New creates a store. Sessions idle longer than ttl are evicted lazily
// on access; ttl <= 0 disables eviction.
func New(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create registers a new session for profile and returns its id.
func (s *Store) Create(profile persona.Profile) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Profile:   profile,
		CreatedAt: now,
		LastSeen:  now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get looks a session up and refreshes its idle timer.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.NewNotFoundError("session not found")
	}
	sess.LastSeen = s.now()
	return sess, nil
}

// Append records one message on a session.
func (s *Store) Append(id string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return core.NewNotFoundError("session not found")
	}
	sess.messages = append(sess.messages, msg)
	sess.LastSeen = s.now()
	return nil
}

// History returns up to limit trailing messages in chronological order.
// limit <= 0 returns everything.
func (s *Store) History(id string, limit int) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, core.NewNotFoundError("session not found")
	}
	msgs := sess.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]chat.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
