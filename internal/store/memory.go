package store

import (
	"context"
	"imposter/internal/game"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	revision  uint64
	updatedAt time.Time
}

// MemoryStore holds all rooms in memory. States are kept encoded so callers
// never share maps or slices with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Load retrieves a room by code
func (s *MemoryStore) Load(ctx context.Context, code string) (Record, error) {
	s.mu.RLock()
	entry, exists := s.rooms[code]
	s.mu.RUnlock()

	if !exists {
		return Record{}, ErrNotFound
	}
	return entry.record(code)
}

// Create stores a new room at revision 1
func (s *MemoryStore) Create(ctx context.Context, code string, state game.State) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[code]; exists {
		return Record{}, ErrAlreadyExists
	}
	entry := memoryEntry{data: data, revision: 1, updatedAt: s.now()}
	s.rooms[code] = entry
	return Record{State: state, Revision: entry.revision, UpdatedAt: entry.updatedAt}, nil
}

// Save replaces a room whose revision is still expectedRevision
func (s *MemoryStore) Save(ctx context.Context, code string, state game.State, expectedRevision uint64) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.rooms[code]
	if !exists {
		return Record{}, ErrNotFound
	}
	if current.revision != expectedRevision {
		return Record{}, ErrConflict
	}
	entry := memoryEntry{data: data, revision: current.revision + 1, updatedAt: s.now()}
	s.rooms[code] = entry
	return Record{State: state, Revision: entry.revision, UpdatedAt: entry.updatedAt}, nil
}

// Delete removes a room
func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, code)
	return nil
}

// Sweep removes rooms not written since olderThan
func (s *MemoryStore) Sweep(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for code, entry := range s.rooms {
		if entry.updatedAt.Before(olderThan) {
			delete(s.rooms, code)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored rooms
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

func (e memoryEntry) record(code string) (Record, error) {
	state, err := decodeState(code, e.data)
	if err != nil {
		return Record{}, err
	}
	return Record{State: state, Revision: e.revision, UpdatedAt: e.updatedAt}, nil
}
