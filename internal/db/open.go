package db

import (
	"context"
	"fmt"

	"github.com/univfleet/vehicle-tracking/internal/config"
)

// Open connects the store backend named by the configuration. Callers get
// the same contract either way; only the Postgres backend carries the write
// time uniqueness and exclusivity guarantees (see VehicleStore).
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return ConnectPostgres(ctx, cfg.PostgresURI)
	case config.BackendMongo:
		return ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}
