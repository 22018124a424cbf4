package repository

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/models"
)

// Backend persists the two independent stores. Saves always receive the
// full contents; backends never merge.
type Backend interface {
	LoadSeen(ctx context.Context) ([]string, error)
	SaveSeen(ctx context.Context, ids []string) error
	LoadDestinations(ctx context.Context) (map[string]models.Destination, error)
	SaveDestinations(ctx context.Context, dests map[string]models.Destination) error
	Close() error
}

// SeenStore is the dedup contract consumed by the poll loop.
type SeenStore interface {
	Contains(id string) bool
	Record(ctx context.Context, id string) error
	Len() int
}

// DestinationStore is the registry contract consumed by the poll loop and commands.
type DestinationStore interface {
	Set(ctx context.Context, tenantID string, channelID int64) error
	Remove(ctx context.Context, tenantID string) (bool, error)
	Get(tenantID string) (models.Destination, bool)
	All() []models.Destination
	Len() int
}

func Open(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileBackend(cfg.SeenPath, cfg.DestinationsPath)
	case "sqlite":
		return NewSQLiteDB(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
