package notify

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSender implements Sender for testing
type fakeSender struct {
	mu       sync.Mutex
	sent     map[int64]int
	fail     map[int64]error
	panicOn  int64
	block    int64
	inflight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: map[int64]int{}, fail: map[int64]error{}}
}

func (f *fakeSender) Send(ctx context.Context, channelID int64, n models.Notification) error {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if channelID == f.panicOn {
		panic("nil channel")
	}
	if channelID == f.block {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[channelID]; err != nil {
		return err
	}
	f.sent[channelID]++
	return nil
}

func (f *fakeSender) count(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[id]
}

func dests(ids ...int64) []models.Destination {
	out := make([]models.Destination, len(ids))
	for i, id := range ids {
		out[i] = models.Destination{TenantID: "t", ChannelID: id}
	}
	return out
}

func TestDeliver_FailureIsolated(t *testing.T) {
	sender := newFakeSender()
	sender.fail[2] = errors.New("missing permissions")

	f := NewFanout(sender, 1, time.Second)
	got := f.Deliver(context.Background(), models.Notification{Content: "hi"}, dests(1, 2, 3))

	if !slices.Equal(got.Sorted(), []int64{1, 3}) {
		t.Errorf("expected success set {1,3}, got %v", got.Sorted())
	}
	if sender.count(1) != 1 || sender.count(3) != 1 {
		t.Errorf("expected one send each to 1 and 3, got %d and %d", sender.count(1), sender.count(3))
	}
}

func TestDeliver_PanicIsolated(t *testing.T) {
	sender := newFakeSender()
	sender.panicOn = 20

	f := NewFanout(sender, 2, time.Second)
	got := f.Deliver(context.Background(), models.Notification{}, dests(10, 20, 30))

	if got.Len() != 2 || got.Has(20) {
		t.Errorf("expected 10 and 30 only, got %v", got.Sorted())
	}
}

func TestDeliver_AllFail(t *testing.T) {
	sender := newFakeSender()
	sender.fail[1] = errors.New("unknown channel")

	got := NewFanout(sender, 4, time.Second).Deliver(context.Background(), models.Notification{}, dests(1))
	if got.Len() != 0 {
		t.Errorf("expected empty success set, got %v", got.Sorted())
	}
}

func TestDeliver_NoDestinations(t *testing.T) {
	sender := newFakeSender()
	got := NewFanout(sender, 4, time.Second).Deliver(context.Background(), models.Notification{}, nil)
	if got == nil || got.Len() != 0 {
		t.Errorf("expected empty non-nil set, got %v", got)
	}
}

func TestDeliver_SendTimeout(t *testing.T) {
	sender := newFakeSender()
	sender.block = 5

	start := time.Now()
	got := NewFanout(sender, 2, 50*time.Millisecond).Deliver(context.Background(), models.Notification{}, dests(5, 6))

	if got.Has(5) || !got.Has(6) {
		t.Errorf("expected only 6 to succeed, got %v", got.Sorted())
	}
	if time.Since(start) > 2*time.Second {
		t.Error("blocked send should have been bounded by the send timeout")
	}
}

func TestDeliver_ConcurrencyBound(t *testing.T) {
	sender := newFakeSender()
	sender.delay = 20 * time.Millisecond

	got := NewFanout(sender, 2, time.Second).Deliver(context.Background(), models.Notification{}, dests(1, 2, 3, 4, 5, 6))

	if got.Len() != 6 {
		t.Errorf("expected 6 successes, got %d", got.Len())
	}
	if peak := sender.peak.Load(); peak > 2 {
		t.Errorf("expected at most 2 concurrent sends, saw %d", peak)
	}
}
