package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 2, OpenDuration: time.Minute})
	require.Equal(t, StateClosed, b.State())

	b.Failure()
	require.Equal(t, StateClosed, b.State(), "one failure should not open a threshold-of-2 breaker")

	b.Failure()
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New(Config{FailureThreshold: 2, OpenDuration: time.Minute})
	b.Failure()
	b.Success()
	b.Failure()
	require.Equal(t, StateClosed, b.State(), "success should reset the consecutive failure count")
}

func TestBreakerHalfOpenAllowsSingleProbe(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenDuration: time.Millisecond})
	b.Failure()
	require.Equal(t, StateOpen, b.State())

	time.Sleep(2 * time.Millisecond)
	require.True(t, b.Allow(), "first Allow after OpenDuration should claim the half-open probe")
	require.Equal(t, StateHalfOpen, b.State())
	require.False(t, b.Allow(), "a second caller should not get the same probe slot")
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenDuration: time.Millisecond})
	b.Failure()
	time.Sleep(2 * time.Millisecond)
	require.True(t, b.Allow())

	b.Failure()
	require.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := New(Config{FailureThreshold: 1, OpenDuration: time.Millisecond})
	b.Failure()
	time.Sleep(2 * time.Millisecond)
	require.True(t, b.Allow())

	b.Success()
	require.Equal(t, StateClosed, b.State())
	require.True(t, b.Allow())
}

func TestRegistryReturnsSameBreakerForKey(t *testing.T) {
	r := NewRegistry(DefaultConfig())
	b1 := r.For("model-a")
	b2 := r.For("model-a")
	require.Same(t, b1, b2)

	b3 := r.For("model-b")
	require.NotSame(t, b1, b3)
}
