package store

import (
	"context"
	"sync"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// Subscription is one reader of a Store. It is meant for a single consumer
// goroutine; Close may be called from anywhere.
type Subscription struct {
	id    uint64
	store *Store

	mu         sync.Mutex
	pending    []models.MonitoringSnapshot
	ready      chan struct{}
	closed     bool
	dropped    uint64
	maxPending int
}

// Next blocks until a snapshot is available, ctx is done or the
// subscription is closed.
func (sub *Subscription) Next(ctx context.Context) (models.MonitoringSnapshot, error) {
	for {
		sub.mu.Lock()
		if sub.closed {
			sub.mu.Unlock()
			return models.MonitoringSnapshot{}, ErrClosed
		}
		if len(sub.pending) > 0 {
			snap := sub.pending[0]
			sub.pending[0] = models.MonitoringSnapshot{}
			sub.pending = sub.pending[1:]
			sub.mu.Unlock()
			return snap.Clone(), nil
		}
		sub.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.MonitoringSnapshot{}, ctx.Err()
		case <-sub.ready:
		}
	}
}

// Dropped reports how many snapshots were discarded because the queue was full.
func (sub *Subscription) Dropped() uint64 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.dropped
}

// Close detaches the subscription from its store. Safe to call twice.
func (sub *Subscription) Close() {
	sub.store.detach(sub.id)

	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.pending = nil
	sub.mu.Unlock()

	sub.signal()
}

// push is called with the store lock held.
func (sub *Subscription) push(snap models.MonitoringSnapshot) {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	if len(sub.pending) >= sub.maxPending {
		sub.pending[0] = models.MonitoringSnapshot{}
		sub.pending = sub.pending[1:]
		sub.dropped++
	}
	sub.pending = append(sub.pending, snap)
	sub.mu.Unlock()

	sub.signal()
}

func (sub *Subscription) signal() {
	select {
	case sub.ready <- struct{}{}:
	default:
	}
}
