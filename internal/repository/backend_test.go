package repository

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

// memBackend implements Backend for testing
type memBackend struct {
	mu        sync.Mutex
	seen      []string
	dests     map[string]models.Destination
	loadErr   error
	saveErr   error
	seenSaves int
	destSaves int
}

func (m *memBackend) LoadSeen(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]string(nil), m.seen...), nil
}

func (m *memBackend) SaveSeen(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seenSaves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.seen = append([]string(nil), ids...)
	return nil
}

func (m *memBackend) LoadDestinations(ctx context.Context) (map[string]models.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return maps.Clone(m.dests), nil
}

func (m *memBackend) SaveDestinations(ctx context.Context, dests map[string]models.Destination) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destSaves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.dests = maps.Clone(dests)
	return nil
}

func (m *memBackend) Close() error { return nil }

var errDisk = errors.New("disk full")
