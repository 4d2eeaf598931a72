package store

import (
	"context"
	"errors"
	"fmt"
	"imposter/internal/game"
	"imposter/internal/store/migrations"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgDB is the subset of *pgxpool.Pool the store uses
type pgDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresStore keeps each room as a jsonb row with a revision column
type PostgresStore struct {
	db pgDB
}

// OpenPostgres applies pending migrations and connects a pool to dsn
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := migrations.Up(ctx, dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// Load retrieves a room by code
func (s *PostgresStore) Load(ctx context.Context, code string) (Record, error) {
	var (
		data      []byte
		revision  int64
		updatedAt time.Time
	)
	err := s.db.QueryRow(ctx,
		"SELECT state, revision, updated_at FROM rooms WHERE code = $1", code,
	).Scan(&data, &revision, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load room %s: %w", code, err)
	}

	state, err := decodeState(code, data)
	if err != nil {
		return Record{}, err
	}
	return Record{State: state, Revision: uint64(revision), UpdatedAt: updatedAt}, nil
}

// Create inserts a new room at revision 1
func (s *PostgresStore) Create(ctx context.Context, code string, state game.State) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	var updatedAt time.Time
	err = s.db.QueryRow(ctx,
		"INSERT INTO rooms (code, state, revision) VALUES ($1, $2, 1) RETURNING updated_at",
		code, string(data),
	).Scan(&updatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// "23505" is the PostgreSQL error code for unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrAlreadyExists
		}
		return Record{}, fmt.Errorf("create room %s: %w", code, err)
	}
	return Record{State: state, Revision: 1, UpdatedAt: updatedAt}, nil
}

// Save replaces a room whose revision is still expectedRevision
func (s *PostgresStore) Save(ctx context.Context, code string, state game.State, expectedRevision uint64) (Record, error) {
	data, err := encodeState(state)
	if err != nil {
		return Record{}, err
	}

	var (
		revision  int64
		updatedAt time.Time
	)
	err = s.db.QueryRow(ctx, `
		UPDATE rooms
		SET state = $2, revision = revision + 1, updated_at = now()
		WHERE code = $1 AND revision = $3
		RETURNING revision, updated_at`,
		code, string(data), int64(expectedRevision),
	).Scan(&revision, &updatedAt)
	if err == nil {
		return Record{State: state, Revision: uint64(revision), UpdatedAt: updatedAt}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("save room %s: %w", code, err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM rooms WHERE code = $1)", code,
	).Scan(&exists); err != nil {
		return Record{}, fmt.Errorf("save room %s: %w", code, err)
	}
	if !exists {
		return Record{}, ErrNotFound
	}
	return Record{}, ErrConflict
}

// Delete removes a room
func (s *PostgresStore) Delete(ctx context.Context, code string) error {
	if _, err := s.db.Exec(ctx, "DELETE FROM rooms WHERE code = $1", code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	return nil
}

// Sweep removes rooms not written since olderThan
func (s *PostgresStore) Sweep(ctx context.Context, olderThan time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM rooms WHERE updated_at < $1", olderThan)
	if err != nil {
		return 0, fmt.Errorf("sweep rooms: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
