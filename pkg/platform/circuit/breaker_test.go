package circuit

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

func newSinkBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	return New("notification", append([]Option{WithClock(clock.Now)}, opts...)...), clock
}

func TestNewBreakerIsClosed(t *testing.T) {
	b, _ := newSinkBreaker()
	assert.Equal(t, "notification", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestConsecutiveFailuresOpen(t *testing.T) {
	b, _ := newSinkBreaker(WithFailureThreshold(3))

	for i := range 2 {
		fallback, change := b.RecordFailure()
		require.False(t, fallback, "failure %d", i+1)
		require.False(t, change.Opened)
	}
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	_, change = b.RecordFailure()
	assert.False(t, change.Opened, "an open breaker reports the transition once")
}

func TestSuccessInterruptsFailureStreak(t *testing.T) {
	b, _ := newSinkBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	_, change := b.RecordFailure()

	assert.False(t, change.Opened)
	assert.False(t, b.IsOpen())
}

func TestOpenBreakerProbesOncePerCooldown(t *testing.T) {
	b, clock := newSinkBreaker(WithFailureThreshold(1), WithCooldown(30*time.Second))
	b.RecordFailure()

	assert.False(t, b.Allow())
	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "probe after cooldown")
	assert.False(t, b.Allow(), "a second probe waits for the next cooldown")
}

func TestFailedProbeRestartsCooldown(t *testing.T) {
	b, clock := newSinkBreaker(WithFailureThreshold(1), WithCooldown(time.Minute))
	b.RecordFailure()

	clock.Advance(time.Minute)
	require.True(t, b.Allow())
	clock.Advance(10 * time.Second)
	b.RecordFailure()

	clock.Advance(55 * time.Second)
	assert.False(t, b.Allow())
	clock.Advance(5 * time.Second)
	assert.True(t, b.Allow())
}

func TestRecoveryNeedsConsecutiveSuccessfulProbes(t *testing.T) {
	b, _ := newSinkBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	b.RecordFailure()
	primary, _ = b.RecordSuccess()
	assert.False(t, primary, "a failure between probes restarts the count")

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
}

func TestReset(t *testing.T) {
	b, _ := newSinkBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
