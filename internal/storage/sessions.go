package storage

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session owns the position store of one user session.
type Session struct {
	ID        string
	Store     *Store
	CreatedAt time.Time

	refreshMu sync.Mutex
	mu        sync.Mutex
	lastSeen  time.Time
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Store:     NewStore(),
		CreatedAt: now,
		lastSeen:  now,
	}
}

// Touch marks the session as active.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last Touch.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Serialize runs fn while holding the session's refresh lock, so a second
// refresh queues behind the one in progress.
func (s *Session) Serialize(fn func()) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	fn()
}

// Sessions is the registry of live sessions, keyed by session ID.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Start creates a session with a fresh random ID.
func (r *Sessions) Start() *Session {
	s := newSession(uuid.NewString())

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	log.Printf("INFO: Session %s started", s.ID)
	return s
}

// Get returns the session for id, creating it if needed.
// Callers with a stable external identity (e.g., a chat ID) use this.
func (r *Sessions) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = newSession(id)
		r.sessions[id] = s
		log.Printf("INFO: Session %s started", id)
	}
	s.Touch()
	return s
}

// Lookup returns an existing session without creating one.
func (r *Sessions) Lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.Touch()
	}
	return s, ok
}

// End discards a session and its positions. Reports whether it existed.
func (r *Sessions) End(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	log.Printf("INFO: Session %s ended", id)
	return true
}

// Sweep ends every session idle for longer than ttl and returns how many were removed.
func (r *Sessions) Sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if time.Since(s.LastSeen()) > ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Count reports the number of live sessions.
func (r *Sessions) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
