package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"money-tracker/internal/changefeed"
	"money-tracker/internal/models"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingActivity keeps every audit entry in memory
type recordingActivity struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *recordingActivity) Record(_ context.Context, entry *models.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingActivity) List(_ context.Context, userID uuid.UUID, action string, _, _ int) ([]models.AuditLog, int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	result := []models.AuditLog{}
	for _, e := range a.entries {
		if e.UserID != nil && *e.UserID == userID && (action == "" || e.Action == action) {
			result = append(result, *e)
		}
	}
	return result, int64(len(result)), nil
}

func (a *recordingActivity) Purge(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (a *recordingActivity) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	actions := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

func (a *recordingActivity) last() *models.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil
	}
	return a.entries[len(a.entries)-1]
}

// countingMetrics counts counter increments by name and a single tag value
type countingMetrics struct {
	mu        sync.Mutex
	counters  map[string]int
	durations map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		counters:  make(map[string]int),
		durations: make(map[string]int),
	}
}

func (m *countingMetrics) IncrementCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
	for k, v := range tags {
		m.counters[name+"|"+k+"="+v]++
	}
}

func (m *countingMetrics) RecordProcessingTime(name string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[name]++
}

func (m *countingMetrics) RecordGauge(string, float64, map[string]string) {}

func (m *countingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

// stubVerifier returns a fixed identity or error
type stubVerifier struct {
	identity *GoogleIdentity
	err      error
}

func (v *stubVerifier) Verify(context.Context, string) (*GoogleIdentity, error) {
	return v.identity, v.err
}

// recordingPublisher keeps published changes and can be told to fail
type recordingPublisher struct {
	mu      sync.Mutex
	changes []changefeed.Change
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, change changefeed.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, change)
	return nil
}

func (p *recordingPublisher) published() []changefeed.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]changefeed.Change(nil), p.changes...)
}

// recordingNotifier keeps the owners refreshed locally
type recordingNotifier struct {
	mu     sync.Mutex
	owners []uuid.UUID
}

func (n *recordingNotifier) Notify(_ context.Context, ownerID uuid.UUID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, ownerID)
	return nil
}

func (n *recordingNotifier) notified() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.owners...)
}
