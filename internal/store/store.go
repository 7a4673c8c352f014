package store

import (
	"context"
	"errors"
	"sync"

	"github.com/vishmithSuranjaya/InfantGuardian/internal/models"
)

// ErrClosed is returned by Next once the subscription has been closed.
var ErrClosed = errors.New("store: subscription closed")

const defaultMaxPending = 256

// Store is a single-slot broadcast holding the latest monitoring snapshot.
// It always holds exactly one value, starting with models.DefaultSnapshot.
// Publish replaces the value and queues it for every subscriber in arrival
// order. Concurrent publishers are serialized, last write wins.
type Store struct {
	mu         sync.RWMutex
	current    models.MonitoringSnapshot
	subs       map[uint64]*Subscription
	nextID     uint64
	maxPending int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxPending bounds each subscriber queue. When full, the oldest
// pending value is dropped.
func WithMaxPending(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxPending = n
		}
	}
}

// New creates a store holding the all-defaults snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		current:    models.DefaultSnapshot(),
		subs:       make(map[uint64]*Subscription),
		maxPending: defaultMaxPending,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish replaces the current snapshot and broadcasts it. Never blocks.
func (s *Store) Publish(snap models.MonitoringSnapshot) {
	snap = snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = snap
	for _, sub := range s.subs {
		sub.push(snap)
	}
}

// Current returns the latest snapshot.
func (s *Store) Current() models.MonitoringSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Subscribe attaches a new subscriber. Its first Next returns the current
// snapshot, then every snapshot published afterwards.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &Subscription{
		id:         s.nextID,
		store:      s,
		pending:    []models.MonitoringSnapshot{s.current},
		ready:      make(chan struct{}, 1),
		maxPending: s.maxPending,
	}
	sub.ready <- struct{}{}
	s.subs[sub.id] = sub
	return sub
}

// SubscriberCount returns the number of attached subscribers.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Watch subscribes and calls fn for every snapshot until ctx is done.
func (s *Store) Watch(ctx context.Context, fn func(models.MonitoringSnapshot)) error {
	sub := s.Subscribe()
	defer sub.Close()

	for {
		snap, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		fn(snap)
	}
}

func (s *Store) detach(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}
