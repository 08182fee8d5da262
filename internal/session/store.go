// Package session keeps per-conversation message history in process memory.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chatd/pkg/types"
)

// Store holds ordered message histories keyed by session id.
//
// The map is guarded by mu; each session carries its own lock so appends to
// different sessions never wait on each other while appends to the same
// session are applied one at a time in arrival order.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	maxMessages int
	now         func() time.Time
}

type entry struct {
	mu      sync.Mutex
	msgs    []types.Message
	removed bool
}

// NewStore returns an empty store. maxMessages caps each history (oldest
// messages are dropped first); 0 keeps histories unbounded.
func NewStore(maxMessages int) *Store {
	if maxMessages < 0 {
		maxMessages = 0
	}
	return &Store{
		sessions:    make(map[string]*entry),
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// NewID returns a fresh random session id.
func (s *Store) NewID() string { return uuid.NewString() }

// Append adds msg to the end of the session history, creating the session
// if needed. A zero Timestamp is filled with the current time.
func (s *Store) Append(id string, msg types.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	for {
		e := s.getOrCreate(id)
		e.mu.Lock()
		if e.removed {
			// Cleared between lookup and lock; retry against the new entry.
			e.mu.Unlock()
			continue
		}
		e.msgs = append(e.msgs, msg)
		if s.maxMessages > 0 && len(e.msgs) > s.maxMessages {
			drop := len(e.msgs) - s.maxMessages
			e.msgs = append(e.msgs[:0:0], e.msgs[drop:]...)
		}
		e.mu.Unlock()
		return
	}
}

// History returns a copy of the session messages in append order. Unknown
// ids yield an empty slice.
func (s *Store) History(id string) []types.Message {
	s.mu.RLock()
	e := s.sessions[id]
	s.mu.RUnlock()
	if e == nil {
		return []types.Message{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.Message, len(e.msgs))
	copy(out, e.msgs)
	return out
}

// Len returns the number of messages recorded for id.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	e := s.sessions[id]
	s.mu.RUnlock()
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.msgs)
}

// Clear drops the session and its history. Clearing an unknown id is a no-op.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	e := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if e != nil {
		e.mu.Lock()
		e.removed = true
		e.msgs = nil
		e.mu.Unlock()
	}
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) getOrCreate(id string) *entry {
	s.mu.RLock()
	e := s.sessions[id]
	s.mu.RUnlock()
	if e != nil {
		return e
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e = s.sessions[id]; e == nil {
		e = &entry{}
		s.sessions[id] = e
	}
	return e
}
