package store

import (
	"context"
	"errors"
	"fmt"
	"imposter/internal/game"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStore keeps rooms in a JetStream key-value bucket. The bucket's
// per-key revision is the record revision, and the bucket TTL expires idle
// rooms.
type NATSStore struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// NewNATSStore wraps an existing bucket. The caller keeps ownership of the
// underlying connection.
func NewNATSStore(kv jetstream.KeyValue) *NATSStore {
	return &NATSStore{kv: kv}
}

// OpenNATS connects to url and creates or updates bucket with the given TTL
func OpenNATS(ctx context.Context, url, bucket string, ttl time.Duration) (*NATSStore, error) {
	nc, err := nats.Connect(url, nats.Name("imposter"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "imposter room state",
		History:     1,
		TTL:         ttl,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	return &NATSStore{kv: kv, nc: nc}, nil
}

// Load retrieves a room by code
func (s *NATSStore) Load(ctx context.Context, code string) (Record, error) {
	entry, err := s.kv.Get(ctx, code)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load room %s: %w", code, err)
	}

	state, err := decodeState(code, entry.Value())
	if err != nil {
		return Record{}, err
	}
	return Record{State: state, Revision: entry.Revision(), UpdatedAt: entry.Created()}, nil
}

// Create stores a new room
func (s *NATSStore) Create(ctx context.Context, code string, state game.State) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	rev, err := s.kv.Create(ctx, code, data)
	if err != nil {
		if isWrongRevision(err) {
			return Record{}, ErrAlreadyExists
		}
		return Record{}, fmt.Errorf("create room %s: %w", code, err)
	}
	return Record{State: state, Revision: rev, UpdatedAt: time.Now()}, nil
}

// Save replaces a room whose revision is still expectedRevision
func (s *NATSStore) Save(ctx context.Context, code string, state game.State, expectedRevision uint64) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	rev, err := s.kv.Update(ctx, code, data, expectedRevision)
	if err == nil {
		return Record{State: state, Revision: rev, UpdatedAt: time.Now()}, nil
	}
	if !isWrongRevision(err) {
		return Record{}, fmt.Errorf("save room %s: %w", code, err)
	}

	// The revision check also fails for a key that is gone
	if _, loadErr := s.Load(ctx, code); errors.Is(loadErr, ErrNotFound) {
		return Record{}, ErrNotFound
	}
	return Record{}, ErrConflict
}

// Delete removes a room and its history
func (s *NATSStore) Delete(ctx context.Context, code string) error {
	if err := s.kv.Purge(ctx, code); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// Close drains the connection if the store opened it
func (s *NATSStore) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
