// Package notify delivers one notification to every registered destination.
package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/logging"
	"github.com/mr1hm/go-weather-alerts/internal/metrics"
	"github.com/mr1hm/go-weather-alerts/internal/models"
	"github.com/mr1hm/go-weather-alerts/internal/worker"
)

// Sender is the platform send primitive: one message to one channel.
type Sender interface {
	Send(ctx context.Context, channelID int64, n models.Notification) error
}

// ChannelSet is the set of channel ids a notification reached.
type ChannelSet map[int64]struct{}

func (s ChannelSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s ChannelSet) Len() int { return len(s) }

func (s ChannelSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Fanout sends each notification once per destination. A failing
// destination is logged and never stops the others; there are no retries.
type Fanout struct {
	sender      Sender
	concurrency int
	sendTimeout time.Duration
	log         *slog.Logger
}

func NewFanout(sender Sender, concurrency int, sendTimeout time.Duration) *Fanout {
	if concurrency < 1 {
		concurrency = 1
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Fanout{
		sender:      sender,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
		log:         logging.Component("fanout"),
	}
}

// Deliver returns the channels that accepted n.
func (f *Fanout) Deliver(ctx context.Context, n models.Notification, dests []models.Destination) ChannelSet {
	succeeded := make(ChannelSet, len(dests))
	if len(dests) == 0 {
		return succeeded
	}

	var mu sync.Mutex
	pool := worker.NewWorkerPool(min(f.concurrency, len(dests)), len(dests), func(ctx context.Context, d models.Destination) error {
		sendCtx, cancel := context.WithTimeout(ctx, f.sendTimeout)
		defer cancel()

		if err := f.sender.Send(sendCtx, d.ChannelID, n); err != nil {
			return err
		}

		mu.Lock()
		succeeded[d.ChannelID] = struct{}{}
		mu.Unlock()
		return nil
	})
	pool.OnError(func(d models.Destination, err error) {
		metrics.SendFailures.Inc()
		f.log.Warn("error posting to channel", "channel_id", d.ChannelID, "tenant_id", d.TenantID, "error", err)
	})

	pool.Start(ctx)
	for _, d := range dests {
		pool.Submit(d)
	}
	pool.Stop()

	return succeeded
}
