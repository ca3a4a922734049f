// Package subscription pushes full result snapshots of a caller's filtered
// transactions whenever that caller's data changes.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"money-tracker/internal/changefeed"
	apperrors "money-tracker/internal/errors"
	"money-tracker/internal/models"
	"money-tracker/internal/query"

	"github.com/google/uuid"
)

var ErrHubClosed = errors.New("subscription hub closed")

// Snapshot is the complete result set for a subscription at one point in time.
// Sequence increases by one per delivered snapshot.
type Snapshot struct {
	Transactions []models.Transaction
	Sequence     uint64
	At           time.Time
}

// Loader fetches the current result set for a filter
type Loader interface {
	List(ctx context.Context, spec query.FilterSpec) ([]models.Transaction, error)
}

// Observer is told when subscriptions open and close and when a refresh fails
type Observer interface {
	SubscriptionOpened()
	SubscriptionClosed()
	SubscriptionRefreshFailed()
}

type nopObserver struct{}

func (nopObserver) SubscriptionOpened()        {}
func (nopObserver) SubscriptionClosed()        {}
func (nopObserver) SubscriptionRefreshFailed() {}

// Option configures a Hub
type Option func(*Hub)

// WithLogger sets the hub's logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithObserver reports subscription lifecycle events to o
func WithObserver(o Observer) Option {
	return func(h *Hub) {
		h.observer = o
	}
}

// WithClock overrides the snapshot timestamp source
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// Hub keeps the registry of live subscriptions, keyed by owner
type Hub struct {
	loader   Loader
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	// generation orders loads so an older result never replaces a newer one
	generation atomic.Uint64

	mu     sync.Mutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	closed bool
}

// NewHub creates a hub that loads snapshots through loader
func NewHub(loader Loader, opts ...Option) *Hub {
	h := &Hub{
		loader:   loader,
		logger:   slog.Default(),
		observer: nopObserver{},
		now:      time.Now,
		subs:     make(map[uuid.UUID]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a live query for spec. The first snapshot is loaded and
// queued before Subscribe returns. Cancelling ctx closes the subscription.
func (h *Hub) Subscribe(ctx context.Context, spec query.FilterSpec) (*Subscription, error) {
	if spec.IsZero() {
		return nil, apperrors.ErrNoCaller
	}

	sub := newSubscription(h, spec)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	owner := spec.Owner()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[*Subscription]struct{})
	}
	h.subs[owner][sub] = struct{}{}
	h.mu.Unlock()

	h.observer.SubscriptionOpened()

	if err := h.refresh(ctx, []*Subscription{sub}); err != nil {
		sub.Close()
		return nil, apperrors.NewStoreError("subscribe", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	h.logger.DebugContext(ctx, "Subscription opened", "owner_id", owner, "filter", spec.Key())

	return sub, nil
}

// Notify reloads and pushes a snapshot to every subscription of ownerID
func (h *Hub) Notify(ctx context.Context, ownerID uuid.UUID) error {
	h.mu.Lock()
	targets := make([]*Subscription, 0, len(h.subs[ownerID]))
	for sub := range h.subs[ownerID] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	return h.refresh(ctx, targets)
}

// NotifyAll reloads and pushes a snapshot to every live subscription
func (h *Hub) NotifyAll(ctx context.Context) error {
	h.mu.Lock()
	targets := make([]*Subscription, 0)
	for _, set := range h.subs {
		for sub := range set {
			targets = append(targets, sub)
		}
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	return h.refresh(ctx, targets)
}

// Resync adapts NotifyAll to a change feed resync hook. Load failures are
// already logged and counted per filter.
func (h *Hub) Resync(ctx context.Context) {
	_ = h.NotifyAll(ctx)
}

// HandleChange adapts Notify to a change feed handler
func (h *Hub) HandleChange(ctx context.Context, change changefeed.Change) error {
	return h.Notify(ctx, change.OwnerID)
}

// refresh loads each distinct filter once and delivers the result to its subscriptions
func (h *Hub) refresh(ctx context.Context, subs []*Subscription) error {
	groups := make(map[string][]*Subscription)
	for _, sub := range subs {
		key := sub.spec.Key()
		groups[key] = append(groups[key], sub)
	}

	var errs []error
	for _, group := range groups {
		gen := h.generation.Add(1)

		transactions, err := h.loader.List(ctx, group[0].spec)
		if err != nil {
			h.observer.SubscriptionRefreshFailed()
			h.logger.WarnContext(ctx, "Failed to load subscription snapshot",
				"owner_id", group[0].spec.Owner(),
				"filter", group[0].spec.Key(),
				"error", err)
			errs = append(errs, err)
			continue
		}

		at := h.now()
		for _, sub := range group {
			sub.deliver(gen, transactions, at)
		}
	}

	return errors.Join(errs...)
}

func (h *Hub) unregister(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	owner := sub.spec.Owner()
	set, ok := h.subs[owner]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, owner)
	}
	h.observer.SubscriptionClosed()
}

// Count returns the number of live subscriptions
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	return n
}

// Close closes every subscription. Later Subscribe calls fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	all := make([]*Subscription, 0)
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
}
