package store

import (
	"context"
	"fmt"
	"imposter/internal/config"
)

// Open returns the backend named by cfg.Store.Backend. Idle rooms expire
// after cfg.Game.RoomTimeout, by bucket TTL for NATS and by Sweep otherwise.
func Open(ctx context.Context, cfg *config.ServerConfig) (Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil
	case config.BackendNATS:
		s, err := OpenNATS(ctx, cfg.Store.NatsURL, cfg.Store.NatsBucket, cfg.Game.RoomTimeout)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := OpenPostgres(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
