package subscription

import (
	"sync"
	"time"

	"money-tracker/internal/models"
	"money-tracker/internal/query"
)

// Subscription is one live query. C holds at most one pending snapshot; a newer
// snapshot replaces an unread one, so a slow reader only ever sees the latest state.
type Subscription struct {
	C <-chan Snapshot

	ch   chan Snapshot
	spec query.FilterSpec
	hub  *Hub

	mu      sync.Mutex
	seq     uint64
	lastGen uint64
	closed  bool
	done    chan struct{}
}

func newSubscription(h *Hub, spec query.FilterSpec) *Subscription {
	ch := make(chan Snapshot, 1)
	return &Subscription{
		C:    ch,
		ch:   ch,
		spec: spec,
		hub:  h,
		done: make(chan struct{}),
	}
}

// Spec returns the filter this subscription follows
func (s *Subscription) Spec() query.FilterSpec {
	return s.spec
}

// Done is closed once the subscription is closed
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) deliver(gen uint64, transactions []models.Transaction, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen < s.lastGen {
		return
	}
	s.lastGen = gen
	s.seq++

	snapshot := Snapshot{
		Transactions: make([]models.Transaction, len(transactions)),
		Sequence:     s.seq,
		At:           at,
	}
	copy(snapshot.Transactions, transactions)

	// drop the unread snapshot; the slot is then free and only we send under mu
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snapshot
}

// Close unregisters the subscription and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	s.mu.Unlock()

	s.hub.unregister(s)
}
