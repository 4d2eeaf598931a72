// Package store persists serialized rooms keyed by room code. Every backend
// versions records with a revision that is checked on write, so two
// collaborators saving the same room cannot silently overwrite each other.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"imposter/internal/game"
	"time"
)

var (
	ErrNotFound      = errors.New("room not found")
	ErrAlreadyExists = errors.New("room already exists")
	ErrConflict      = errors.New("room was modified concurrently")
)

// Record is a stored room and its write revision
type Record struct {
	State     game.State
	Revision  uint64
	UpdatedAt time.Time
}

// Store is the persistence contract shared by all backends
type Store interface {
	// Load returns the latest record for code, or ErrNotFound
	Load(ctx context.Context, code string) (Record, error)
	// Create stores a new room, or fails with ErrAlreadyExists
	Create(ctx context.Context, code string, state game.State) (Record, error)
	// Save replaces the room if its revision still equals expectedRevision,
	// otherwise it fails with ErrConflict
	Save(ctx context.Context, code string, state game.State, expectedRevision uint64) (Record, error)
	// Delete removes the room; deleting a missing room is not an error
	Delete(ctx context.Context, code string) error
	Close() error
}

// Sweeper is implemented by stores that expire idle rooms on request rather
// than by themselves
type Sweeper interface {
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}

func encodeState(state game.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode room %s: %w", state.RoomCode, err)
	}
	return data, nil
}

func decodeState(code string, data []byte) (game.State, error) {
	var state game.State
	if err := json.Unmarshal(data, &state); err != nil {
		return game.State{}, fmt.Errorf("%w: room %s: %w", game.ErrCorruptState, code, err)
	}
	return state, nil
}
