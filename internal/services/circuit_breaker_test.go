package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type transition struct {
	from, to BreakerState
}

func newTestBreaker(clock *fakeClock, transitions *[]transition) CircuitBreakerInterface {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:            "change_feed",
		MaxFailures:     3,
		ResetTimeout:    10 * time.Second,
		HalfOpenMaxSucc: 2,
		Now:             clock.Now,
		OnStateChange: func(name string, from, to BreakerState) {
			*transitions = append(*transitions, transition{from, to})
		},
	})
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []transition
	cb := newTestBreaker(clock, &transitions)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())
	assert.Equal(t, 2, cb.GetFailureCount())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Equal(t, []transition{{StateClosed, StateOpen}}, transitions)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var transitions []transition
	cb := newTestBreaker(clock, &transitions)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	assert.False(t, cb.IsOpen())
	assert.Equal(t, 1, cb.GetFailureCount())
	assert.Empty(t, transitions)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var transitions []transition
	cb := newTestBreaker(clock, &transitions)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.True(t, cb.IsOpen())

	clock.Advance(11 * time.Second)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())

	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var transitions []transition
	cb := newTestBreaker(clock, &transitions)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	clock.Advance(11 * time.Second)
	require.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var transitions []transition
	cb := newTestBreaker(clock, &transitions)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	cb.Reset()

	assert.False(t, cb.IsOpen())
	assert.Zero(t, cb.GetFailureCount())
	assert.Equal(t, transition{StateOpen, StateClosed}, transitions[len(transitions)-1])
}

func TestBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", BreakerState(9).String())
}
