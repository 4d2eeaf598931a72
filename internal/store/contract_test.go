package store

import (
	"context"
	"errors"
	"fmt"
	"imposter/internal/catalog"
	"imposter/internal/game"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState(t *testing.T, code string) game.State {
	t.Helper()
	room, err := game.NewRoom(code, "Sara", catalog.Default())
	require.NoError(t, err)
	require.NoError(t, room.AddPlayer("Omar"))
	return room.Snapshot()
}

// testStoreContract runs the behaviour every backend must share
func testStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("load missing room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "NONE")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create then load", func(t *testing.T) {
		s := newStore(t)
		state := sampleState(t, "LOAD")

		created, err := s.Create(ctx, "LOAD", state)
		require.NoError(t, err)
		assert.NotZero(t, created.Revision)

		loaded, err := s.Load(ctx, "LOAD")
		require.NoError(t, err)
		assert.Equal(t, created.Revision, loaded.Revision)
		if diff := cmp.Diff(state, loaded.State); diff != "" {
			t.Errorf("loaded state mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create existing room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "DUPE", sampleState(t, "DUPE"))
		require.NoError(t, err)

		_, err = s.Create(ctx, "DUPE", sampleState(t, "DUPE"))
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("save advances revision", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, "SAVE", sampleState(t, "SAVE"))
		require.NoError(t, err)

		next := created.State
		next.MinPlayers = 5
		saved, err := s.Save(ctx, "SAVE", next, created.Revision)
		require.NoError(t, err)
		assert.Greater(t, saved.Revision, created.Revision)

		loaded, err := s.Load(ctx, "SAVE")
		require.NoError(t, err)
		assert.Equal(t, 5, loaded.State.MinPlayers)
		assert.Equal(t, saved.Revision, loaded.Revision)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Create(ctx, "STAL", sampleState(t, "STAL"))
		require.NoError(t, err)

		first := created.State
		first.MinPlayers = 4
		_, err = s.Save(ctx, "STAL", first, created.Revision)
		require.NoError(t, err)

		second := created.State
		second.MinPlayers = 6
		_, err = s.Save(ctx, "STAL", second, created.Revision)
		assert.ErrorIs(t, err, ErrConflict)

		loaded, err := s.Load(ctx, "STAL")
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.State.MinPlayers, "losing write must not be applied")
	})

	t.Run("save missing room", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Save(ctx, "GONE", sampleState(t, "GONE"), 1)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "DELE", sampleState(t, "DELE"))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, "DELE"))
		_, err = s.Load(ctx, "DELE")
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, s.Delete(ctx, "DELE"), "deleting twice is fine")
	})

	t.Run("concurrent writers lose nothing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Create(ctx, "RACE", sampleState(t, "RACE"))
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				errs <- addPlayerWithRetry(ctx, s, "RACE", name)
			}(fmt.Sprintf("Player%d", i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		loaded, err := s.Load(ctx, "RACE")
		require.NoError(t, err)
		assert.Len(t, loaded.State.Players, 2+writers)
	})
}

func addPlayerWithRetry(ctx context.Context, s Store, code, name string) error {
	for attempt := 0; attempt < 100; attempt++ {
		rec, err := s.Load(ctx, code)
		if err != nil {
			return err
		}
		room, err := game.FromState(rec.State, catalog.Default())
		if err != nil {
			return err
		}
		if err := room.AddPlayer(name); err != nil {
			return err
		}
		_, err = s.Save(ctx, code, room.Snapshot(), rec.Revision)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("%s: too many conflicts", name)
}
