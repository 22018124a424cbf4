package repository

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

// Destinations maps a tenant (guild) to its alert channel. At most one
// destination per tenant.
type Destinations struct {
	mu      sync.RWMutex
	backend Backend
	byID    map[string]models.Destination
}

func NewDestinations(backend Backend) *Destinations {
	return &Destinations{
		backend: backend,
		byID:    make(map[string]models.Destination),
	}
}

// Load follows the same policy as SeenAlerts.Load: unreadable means empty.
func (d *Destinations) Load(ctx context.Context) {
	loaded, err := d.backend.LoadDestinations(ctx)
	if err != nil {
		slog.Warn("server config unreadable, starting empty", "error", err)
		loaded = nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.byID = make(map[string]models.Destination, len(loaded))
	for tenant, dest := range loaded {
		dest.TenantID = tenant
		d.byID[tenant] = dest
	}

	slog.Info("alert channels loaded", "count", len(d.byID))
}

// Set upserts the destination for tenantID and persists immediately.
func (d *Destinations) Set(ctx context.Context, tenantID string, channelID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byID[tenantID] = models.Destination{TenantID: tenantID, ChannelID: channelID}
	return d.backend.SaveDestinations(ctx, maps.Clone(d.byID))
}

// Remove reports whether an entry existed. Nothing is written when it did not.
func (d *Destinations) Remove(ctx context.Context, tenantID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[tenantID]; !ok {
		return false, nil
	}
	delete(d.byID, tenantID)
	return true, d.backend.SaveDestinations(ctx, maps.Clone(d.byID))
}

func (d *Destinations) Get(tenantID string) (models.Destination, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dest, ok := d.byID[tenantID]
	return dest, ok
}

// All returns destinations with a usable channel id, ordered by tenant.
func (d *Destinations) All() []models.Destination {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Destination, 0, len(d.byID))
	for _, dest := range d.byID {
		if dest.ChannelID == 0 {
			continue
		}
		out = append(out, dest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out
}

// Len counts configured tenants, including ones without a usable channel.
func (d *Destinations) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
