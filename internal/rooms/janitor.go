package rooms

import (
	"context"
	"time"

	"imposter/internal/store"
)

// SweepOnce removes rooms idle for longer than the room timeout. Stores
// that expire rooms by themselves report zero.
func (s *Service) SweepOnce(ctx context.Context) (int, error) {
	sweeper, ok := s.store.(store.Sweeper)
	if !ok || s.settings.RoomTimeout <= 0 {
		return 0, nil
	}

	removed, err := sweeper.Sweep(ctx, time.Now().Add(-s.settings.RoomTimeout))
	if err != nil {
		return 0, err
	}
	s.metrics.Swept(removed)
	return removed, nil
}

// RunJanitor sweeps idle rooms every interval until ctx is done
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if _, ok := s.store.(store.Sweeper); !ok {
		s.log.Info().Msg("store expires rooms itself, janitor not started")
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Error().Err(err).Msg("room sweep failed")
				continue
			}
			if removed > 0 {
				s.log.Info().Int("rooms", removed).Msg("swept idle rooms")
			}
		}
	}
}
