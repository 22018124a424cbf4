// Package ingestion runs the alert poll loop: fetch, dedup, deliver, record.
package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/logging"
	"github.com/mr1hm/go-weather-alerts/internal/metrics"
	"github.com/mr1hm/go-weather-alerts/internal/models"
	"github.com/mr1hm/go-weather-alerts/internal/notify"
	"github.com/mr1hm/go-weather-alerts/internal/stream"
)

var (
	ErrAlreadyStarted = errors.New("poll loop already started")
	ErrStopped        = errors.New("poll loop stopped")
)

type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type AlertFetcher interface {
	ActiveAlerts(ctx context.Context) []models.Alert
}

type Renderer interface {
	Alert(a models.Alert) models.Notification
}

type Deliverer interface {
	Deliver(ctx context.Context, n models.Notification, dests []models.Destination) notify.ChannelSet
}

type SeenStore interface {
	Contains(id string) bool
	Record(ctx context.Context, id string) error
	Len() int
}

type DestinationLister interface {
	All() []models.Destination
}

type Publisher interface {
	Publish(d *stream.Delivery)
}

// CycleReport summarizes one pass of the loop.
type CycleReport struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Skipped     bool          `json:"skipped"`
	Fetched     int           `json:"fetched"`
	Duplicates  int           `json:"duplicates"`
	Delivered   []string      `json:"delivered"`
	Undelivered []string      `json:"undelivered"`
	Interrupted bool          `json:"interrupted"`
}

type Manager struct {
	interval  time.Duration
	fetcher   AlertFetcher
	renderer  Renderer
	deliverer Deliverer
	seen      SeenStore
	dests     DestinationLister
	publisher Publisher
	log       *slog.Logger

	mu        sync.Mutex
	state     State
	lastCycle CycleReport
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

// NewManager wires the loop. publisher may be nil.
func NewManager(cfg *config.Config, fetcher AlertFetcher, renderer Renderer, deliverer Deliverer, seen SeenStore, dests DestinationLister, publisher Publisher) *Manager {
	return &Manager{
		interval:  cfg.Poller.Interval,
		fetcher:   fetcher,
		renderer:  renderer,
		deliverer: deliverer,
		seen:      seen,
		dests:     dests,
		publisher: publisher,
		log:       logging.Component("poll_loop"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs an initial cycle and then one per interval until Stop is
// called or ctx is cancelled. Call it once the platform session is ready.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}
	m.state = StateRunning

	go m.run(ctx)
	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	defer m.setState(StateStopped)
	m.log.Info("starting poll loop", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial poll
	m.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("poll loop shutting down", "reason", ctx.Err())
			return
		case <-m.stop:
			m.log.Info("poll loop shutting down", "reason", "stop requested")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// Stop is terminal. It waits for an in-flight cycle to reach the next alert
// boundary; a fan-out already in progress completes first.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.state != StateNotStarted
	if !started {
		m.state = StateStopped
	}
	m.mu.Unlock()

	m.stopOnce.Do(func() { close(m.stop) })
	if started {
		<-m.done
	}
	m.log.Info("poll loop stopped")
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) Interval() time.Duration {
	return m.interval
}

// LastCycle returns the most recent completed cycle's report.
func (m *Manager) LastCycle() CycleReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCycle
}

func (m *Manager) stopping() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

// RunCycle performs a single poll pass. Alerts are delivered in upstream
// order; an id is recorded only when at least one destination accepted it.
func (m *Manager) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{StartedAt: time.Now()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.CycleDuration.Observe(report.Duration.Seconds())
		metrics.SeenAlerts.Set(float64(m.seen.Len()))

		m.mu.Lock()
		m.lastCycle = report
		m.mu.Unlock()
	}()

	dests := m.dests.All()
	metrics.Destinations.Set(float64(len(dests)))
	if len(dests) == 0 {
		m.log.Debug("no destinations configured, skipping poll")
		metrics.PollSkipped.Inc()
		report.Skipped = true
		return report
	}

	metrics.PollCycles.Inc()
	alerts := m.fetcher.ActiveAlerts(ctx)
	report.Fetched = len(alerts)
	m.log.Debug("polled active alerts", "count", len(alerts), "destinations", len(dests))

	for _, alert := range alerts {
		if m.stopping() || ctx.Err() != nil {
			report.Interrupted = true
			break
		}
		if alert.ID == "" {
			m.log.Warn("skipping alert without id", "event", alert.Event)
			continue
		}
		if m.seen.Contains(alert.ID) {
			report.Duplicates++
			continue
		}

		n := m.renderer.Alert(alert)
		succeeded := m.deliverer.Deliver(ctx, n, dests)
		if succeeded.Len() == 0 {
			m.log.Warn("alert not delivered to any destination, will retry", "id", alert.ID, "event", alert.Event)
			metrics.AlertsUndelivered.Inc()
			report.Undelivered = append(report.Undelivered, alert.ID)
			continue
		}

		if err := m.seen.Record(ctx, alert.ID); err != nil {
			m.log.Error("error recording delivered alert", "id", alert.ID, "error", err)
		}
		metrics.AlertsDelivered.WithLabelValues(string(alert.Severity)).Inc()
		report.Delivered = append(report.Delivered, alert.ID)

		if m.publisher != nil {
			m.publisher.Publish(&stream.Delivery{
				Alert:       alert,
				Channels:    succeeded.Sorted(),
				Urgent:      n.Urgent,
				DeliveredAt: time.Now(),
			})
		}

		m.log.Info("posted alert", "id", alert.ID, "event", alert.Event, "severity", alert.Severity,
			"urgent", n.Urgent, "channels", succeeded.Len(), "destinations", len(dests))
	}

	return report
}
