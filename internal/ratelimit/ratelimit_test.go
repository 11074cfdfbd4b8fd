package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/llmmodel"
)

type fakeClient struct {
	err error
}

func (f *fakeClient) Complete(ctx context.Context, req *llmmodel.Request) (*llmmodel.Response, error) {
	return &llmmodel.Response{}, f.err
}

func (f *fakeClient) Stream(ctx context.Context, req *llmmodel.Request) (llmmodel.Streamer, error) {
	return nil, f.err
}

func textRequest(text string) *llmmodel.Request {
	return &llmmodel.Request{Messages: []*llmmodel.Message{
		{Parts: []llmmodel.Part{llmmodel.TextPart{Text: text}}},
	}}
}

func TestMiddlewareWrapsClientAndPassesThroughSuccess(t *testing.T) {
	l := New(60000, 60000)
	wrapped := l.Middleware()(&fakeClient{})

	_, err := wrapped.Complete(context.Background(), textRequest("hello"))
	require.NoError(t, err)
}

func TestMiddlewareNilClientReturnsNil(t *testing.T) {
	l := New(60000, 60000)
	require.Nil(t, l.Middleware()(nil))
}

func TestObserveBacksOffOnRateLimitError(t *testing.T) {
	l := New(60000, 60000)
	before := l.CurrentTPM()

	wrapped := l.Middleware()(&fakeClient{err: llmmodel.ErrRateLimited})
	_, _ = wrapped.Complete(context.Background(), textRequest("hello"))

	require.Less(t, l.CurrentTPM(), before, "a rate-limit error should shrink the effective budget")
}

func TestObserveProbesUpwardOnSuccess(t *testing.T) {
	l := New(2000, 60000)
	wrapped := l.Middleware()(&fakeClient{err: llmmodel.ErrRateLimited})
	_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	afterBackoff := l.CurrentTPM()

	wrapped = l.Middleware()(&fakeClient{})
	_, _ = wrapped.Complete(context.Background(), textRequest("hello"))

	require.Greater(t, l.CurrentTPM(), afterBackoff, "a success after backoff should probe the budget back up")
}

func TestBackoffConvergesToFloorUnderSustainedFailures(t *testing.T) {
	// A high initial TPM keeps the token bucket's burst well above each
	// call's estimated cost so the assertions resolve without the
	// limiter itself blocking on refill.
	l := New(600000, 600000)
	wrapped := l.Middleware()(&fakeClient{err: llmmodel.ErrRateLimited})

	for i := 0; i < 20; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}
	require.Equal(t, 60000.0, l.CurrentTPM(), "a long failure streak should collapse the budget to its 10%% floor")
}

func TestBackoffStreakShrinksFasterThanIsolatedFailures(t *testing.T) {
	l := New(600000, 600000)
	failing := l.Middleware()(&fakeClient{err: llmmodel.ErrRateLimited})
	healthy := l.Middleware()(&fakeClient{})

	_, _ = failing.Complete(context.Background(), textRequest("hello"))
	_, _ = healthy.Complete(context.Background(), textRequest("hello"))
	_, _ = failing.Complete(context.Background(), textRequest("hello"))
	afterIsolated := l.CurrentTPM()

	l2 := New(600000, 600000)
	failing2 := l2.Middleware()(&fakeClient{err: llmmodel.ErrRateLimited})
	_, _ = failing2.Complete(context.Background(), textRequest("hello"))
	_, _ = failing2.Complete(context.Background(), textRequest("hello"))
	afterStreak := l2.CurrentTPM()

	require.Greater(t, afterIsolated, afterStreak, "two back-to-back failures should cost more than two isolated ones separated by a success")
}

func TestProbeRespectsCeiling(t *testing.T) {
	l := New(600000, 602000)
	wrapped := l.Middleware()(&fakeClient{})

	for i := 0; i < 50; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}
	require.LessOrEqual(t, l.CurrentTPM(), 602000.0)
}

func TestThrottleForcesImmediateBackoff(t *testing.T) {
	l := New(60000, 60000)
	before := l.CurrentTPM()

	l.Throttle()

	require.Less(t, l.CurrentTPM(), before, "Throttle should shrink the budget without needing a vendor 429")
}

func TestEstimateTokensReservesMaxTokensAndThinkingBudget(t *testing.T) {
	plain := &llmmodel.Request{Messages: []*llmmodel.Message{
		{Parts: []llmmodel.Part{llmmodel.TextPart{Text: "hello"}}},
	}}
	withReserve := &llmmodel.Request{
		Messages:  plain.Messages,
		MaxTokens: 1000,
		Thinking:  &llmmodel.ThinkingOptions{Enable: true, BudgetTokens: 8192},
	}

	require.Greater(t, estimateTokens(withReserve), estimateTokens(plain)+9000)
}

func TestOnChangeFiresOnlyWhenBudgetMoves(t *testing.T) {
	l := New(2000, 3000)
	var calls int
	l.OnChange(func(float64) { calls++ })

	wrapped := l.Middleware()(&fakeClient{})
	for i := 0; i < 5; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}
	require.Equal(t, 3000.0, l.CurrentTPM(), "five successes should pin the budget at the ceiling")
	pinnedCalls := calls
	require.Greater(t, pinnedCalls, 0)

	for i := 0; i < 5; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}
	require.Equal(t, pinnedCalls, calls, "once pinned at the ceiling, further successes must not report a change")
}
