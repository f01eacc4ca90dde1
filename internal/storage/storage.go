package storage

import (
	"fmt"
	"sync"

	"nse_tracker/internal/models"
)

// Store is the ordered, append-only collection of positions for one session.
// It lives in memory only; nothing is written to disk.
type Store struct {
	mu        sync.RWMutex
	positions []models.Position
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{positions: []models.Position{}}
}

// Add validates the record and appends it to the end of the store.
// On a validation failure the store is left untouched.
func (s *Store) Add(p models.Position) (models.Position, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("invalid position: %w", err)
	}

	s.mu.Lock()
	s.positions = append(s.positions, p)
	s.mu.Unlock()

	return p, nil
}

// All returns a snapshot of the stored positions in insertion order.
// The returned slice is a copy: later Adds never show up in it.
func (s *Store) All() []models.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Position, len(s.positions))
	copy(out, s.positions)
	return out
}

// Len reports how many positions are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
