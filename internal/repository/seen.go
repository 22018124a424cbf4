package repository

import (
	"context"
	"log/slog"
	"sync"
)

const DefaultSeenCap = 500

// SeenAlerts is the bounded, FIFO-evicting record of delivered alert ids.
// Every mutation is written through to the backend.
type SeenAlerts struct {
	mu      sync.Mutex
	backend Backend
	cap     int
	ids     []string
	index   map[string]struct{}
}

func NewSeenAlerts(backend Backend, capacity int) *SeenAlerts {
	if capacity < 1 {
		capacity = DefaultSeenCap
	}
	return &SeenAlerts{
		backend: backend,
		cap:     capacity,
		index:   make(map[string]struct{}),
	}
}

// Load replaces the in-memory state with the persisted one. A missing or
// unreadable store resets to empty; it never fails startup.
func (s *SeenAlerts) Load(ctx context.Context) {
	ids, err := s.backend.LoadSeen(ctx)
	if err != nil {
		slog.Warn("posted alerts unreadable, starting empty", "error", err)
		ids = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = s.ids[:0]
	s.index = make(map[string]struct{}, len(ids))
	if len(ids) > s.cap {
		ids = ids[len(ids)-s.cap:]
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
	}

	slog.Info("posted alerts loaded", "count", len(s.ids))
}

func (s *SeenAlerts) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Record appends id if absent, evicts the oldest entries past the cap and
// persists the full set. The in-memory state is kept even when the write fails.
func (s *SeenAlerts) Record(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; ok {
		return nil
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)

	if over := len(s.ids) - s.cap; over > 0 {
		for _, old := range s.ids[:over] {
			delete(s.index, old)
		}
		s.ids = append(s.ids[:0:0], s.ids[over:]...)
	}

	snapshot := make([]string, len(s.ids))
	copy(snapshot, s.ids)
	return s.backend.SaveSeen(ctx, snapshot)
}

func (s *SeenAlerts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the ids in delivery order, oldest first.
func (s *SeenAlerts) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
