package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mr1hm/go-weather-alerts/internal/config"
)

type Publisher interface {
	Publish(d *Delivery)
}

// Multi publishes to each non-nil publisher in order.
type Multi []Publisher

func (m Multi) Publish(d *Delivery) {
	for _, p := range m {
		if p != nil {
			p.Publish(d)
		}
	}
}

// NATSRelay forwards deliveries to NATS core subjects of the form
// <prefix>.<severity>. Publishing is fire-and-forget.
type NATSRelay struct {
	nc     *nats.Conn
	prefix string
	closed chan struct{}
}

const drainTimeout = 5 * time.Second

func NewNATSRelay(cfg config.RelayConfig) (*NATSRelay, error) {
	closed := make(chan struct{})
	var closeOnce sync.Once

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("go-weather-alerts"),
		nats.MaxReconnects(-1),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(_ *nats.Conn) {
			closeOnce.Do(func() { close(closed) })
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats relay disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats relay reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("error connecting to nats: %w", err)
	}
	return &NATSRelay{nc: nc, prefix: cfg.Subject, closed: closed}, nil
}

func (r *NATSRelay) Publish(d *Delivery) {
	data, err := json.Marshal(d)
	if err != nil {
		slog.Error("error encoding delivery", "id", d.Alert.ID, "error", err)
		return
	}
	subject := subjectFor(r.prefix, d)
	if err := r.nc.Publish(subject, data); err != nil {
		slog.Warn("error relaying delivery", "id", d.Alert.ID, "subject", subject, "error", err)
	}
}

// Close flushes pending messages and blocks until the connection is closed
// or the drain times out.
func (r *NATSRelay) Close() {
	if !awaitDrain(r.nc.Drain, r.nc.Close, r.closed, drainTimeout+time.Second) {
		slog.Warn("nats relay drain timed out, pending deliveries may be lost")
	}
}

// awaitDrain starts drain and waits for closed. It falls back to closeNow
// when the drain cannot start or does not finish within timeout.
func awaitDrain(drain func() error, closeNow func(), closed <-chan struct{}, timeout time.Duration) bool {
	if err := drain(); err != nil {
		slog.Warn("error draining nats relay", "error", err)
		closeNow()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-closed:
		return true
	case <-timer.C:
		closeNow()
		return false
	}
}

func subjectFor(prefix string, d *Delivery) string {
	severity := strings.ToLower(string(d.Alert.Severity))
	if severity == "" {
		severity = "unknown"
	}
	return prefix + "." + severity
}
