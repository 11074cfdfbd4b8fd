package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDoSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDoRetriesRetryableThenSucceeds(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffMultiplier: 2}
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		if calls < 2 {
			return &HTTPStatusError{StatusCode: 503, Message: "unavailable"}
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestDoStopsImmediatelyOnNonRetryable(t *testing.T) {
	calls := 0
	notRetryable := &HTTPStatusError{StatusCode: 400, Message: "bad request"}
	err := Do(context.Background(), DefaultConfig(), func(context.Context) error {
		calls++
		return notRetryable
	})
	require.ErrorIs(t, err, notRetryable)
	require.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, BackoffMultiplier: 2}
	err := Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return &HTTPStatusError{StatusCode: 429, Message: "rate limited"}
	})
	require.Equal(t, 3, calls)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
}

func TestDoReturnsContextErrorWhenCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 2, InitialBackoff: 50 * time.Millisecond}
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	err := Do(ctx, cfg, func(context.Context) error {
		return &HTTPStatusError{StatusCode: 503, Message: "unavailable"}
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableClassifiesErrors(t *testing.T) {
	require.False(t, IsRetryable(nil))
	require.False(t, IsRetryable(context.Canceled))
	require.True(t, IsRetryable(context.DeadlineExceeded))
	require.True(t, IsRetryable(&HTTPStatusError{StatusCode: 429, Message: "x"}))
	require.True(t, IsRetryable(&HTTPStatusError{StatusCode: 503, Message: "x"}))
	require.False(t, IsRetryable(&HTTPStatusError{StatusCode: 400, Message: "x"}))
	require.False(t, IsRetryable(errors.New("opaque")))
}
