package httpclient

import (
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance breaker time deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestBreaker(threshold int, openTimeout time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	b := newBreaker("http://maintenance:8080", threshold, openTimeout, log.NewHelper(log.DefaultLogger))
	b.now = clock.Now
	return b, clock
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Allow())
		b.ReportFailure()
	}

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 4, b.FailureCount())
	assert.NoError(t, b.Allow())
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Allow())
		b.ReportFailure()
	}

	assert.Equal(t, StateOpen, b.State())

	err := b.Allow()
	require.Error(t, err)
	assert.True(t, IsCircuitOpen(err))
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 0; i < 4; i++ {
		b.ReportFailure()
	}
	b.ReportSuccess()

	assert.Equal(t, 0, b.FailureCount())
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenAdmitsExactlyOneTrial(t *testing.T) {
	b, clock := newTestBreaker(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.ReportFailure()
	}
	require.Equal(t, StateOpen, b.State())

	// Before the open timeout elapses, everything is rejected.
	clock.Advance(30 * time.Second)
	assert.True(t, IsCircuitOpen(b.Allow()))

	// After the timeout, exactly one trial is admitted.
	clock.Advance(31 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, 0, b.FailureCount(), "entering half-open resets the failure count")

	// A concurrent call during the trial is rejected.
	assert.True(t, IsCircuitOpen(b.Allow()))
}

func TestBreaker_TrialSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.ReportFailure()
	}
	clock.Advance(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.ReportSuccess()

	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_TrialFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(5, time.Minute)

	for i := 0; i < 5; i++ {
		b.ReportFailure()
	}
	clock.Advance(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.ReportFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.True(t, IsCircuitOpen(b.Allow()))

	// The reopened window starts from the trial failure.
	clock.Advance(61 * time.Second)
	assert.NoError(t, b.Allow())
}

func TestDestinationKey(t *testing.T) {
	tests := []struct {
		rawURL string
		want   string
	}{
		{"http://notifications:8004/notifications", "http://notifications:8004"},
		{"http://notifications:8004/notifications/admin", "http://notifications:8004"},
		{"https://booking.campus.edu/v1/rooms?id=3", "https://booking.campus.edu"},
		{"notifications:8004/path", "notifications:8004/path"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, destinationKey(tt.rawURL), "url %q", tt.rawURL)
	}
}

func TestDestinationKey_SharedAcrossPaths(t *testing.T) {
	reg := newBreakerRegistry(5, time.Minute, log.NewHelper(log.DefaultLogger))

	a := reg.get(destinationKey("http://users:8002/users/1"))
	b := reg.get(destinationKey("http://users:8002/users/2"))
	c := reg.get(destinationKey("http://booking:8001/bookings"))

	assert.Same(t, a, b, "same host must share breaker state")
	assert.NotSame(t, a, c, "different hosts must not share breaker state")
}
