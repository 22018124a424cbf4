// Package stream fans delivered alerts out to in-process subscribers such
// as the SSE endpoint.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

// Delivery is published once per alert that reached at least one channel.
type Delivery struct {
	Alert       models.Alert `json:"alert"`
	Channels    []int64      `json:"channels"`
	Urgent      bool         `json:"urgent"`
	DeliveredAt time.Time    `json:"delivered_at"`
}

const subscriberBuffer = 100

type Broadcaster struct {
	subscribers map[uint64]chan *Delivery
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *Delivery),
	}
}

// Subscribe returns a closed channel once the broadcaster has been closed.
func (b *Broadcaster) Subscribe() (uint64, <-chan *Delivery) {
	id := b.nextID.Add(1)
	ch := make(chan *Delivery, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Publish(d *Delivery) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- d:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streams exit.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
