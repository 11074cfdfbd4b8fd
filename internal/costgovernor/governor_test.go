package costgovernor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckBudgetDisabledAlwaysProceeds(t *testing.T) {
	st := inmem.New()
	g := New(Config{Enabled: false}, st, st, nil)
	status, err := g.CheckBudget(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, status.CanProceed)
}

func TestCheckBudgetNoUsageYetProceeds(t *testing.T) {
	st := inmem.New()
	g := New(Config{Enabled: true, DailyTokenBudget: 1000, Clock: fixedClock(time.Unix(0, 0))}, st, st, nil)
	status, err := g.CheckBudget(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, status.CanProceed)
	require.Zero(t, status.TokensUsed)
}

func TestRecordUsageCrossesSoftLimit(t *testing.T) {
	st := inmem.New()
	now := time.Unix(0, 0)
	g := New(Config{Enabled: true, DailyTokenBudget: 1000, SoftLimitRatio: 0.5, Clock: fixedClock(now)}, st, st, nil)

	require.NoError(t, g.RecordUsage(context.Background(), "u1", 400, 200, 0))
	status, err := g.CheckBudget(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(600), status.TokensUsed)
	require.True(t, status.ShouldReduceEffort, "600/1000 crosses the 0.5 soft limit")
	require.True(t, status.CanProceed)
}

func TestCheckBudgetHardCutoff(t *testing.T) {
	st := inmem.New()
	now := time.Unix(0, 0)
	g := New(Config{Enabled: true, DailyTokenBudget: 1000, Clock: fixedClock(now)}, st, st, nil)

	require.NoError(t, g.RecordUsage(context.Background(), "u1", 1000, 0, 0))
	status, err := g.CheckBudget(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, status.CanProceed)
}

func TestApplyEffortPolicyDowngradesOnlyWhenFlagged(t *testing.T) {
	g := New(Config{}, nil, nil, nil)
	require.Equal(t, core.EffortCritical, g.ApplyEffortPolicy(core.BudgetStatus{ShouldReduceEffort: false}, core.EffortCritical))
	require.Equal(t, core.EffortComplex, g.ApplyEffortPolicy(core.BudgetStatus{ShouldReduceEffort: true}, core.EffortCritical))
}

func TestCheckRetryBudgetAllowsUpToCap(t *testing.T) {
	st := inmem.New()
	g := New(Config{DefaultRetryBudget: 2}, st, st, nil)

	allowed, err := g.CheckRetryBudget(context.Background(), "goal-1", 0)
	require.NoError(t, err)
	require.True(t, allowed, "no retries consumed yet")

	consumed, err := g.RecordRetry(context.Background(), "goal-1")
	require.NoError(t, err)
	require.Equal(t, 1, consumed)

	allowed, err = g.CheckRetryBudget(context.Background(), "goal-1", 0)
	require.NoError(t, err)
	require.True(t, allowed)

	consumed, err = g.RecordRetry(context.Background(), "goal-1")
	require.NoError(t, err)
	require.Equal(t, 2, consumed)

	allowed, err = g.CheckRetryBudget(context.Background(), "goal-1", 0)
	require.NoError(t, err)
	require.False(t, allowed, "two consumed retries should exhaust the cap of 2")
}

func TestClearRetryCountResetsCheckRetryBudget(t *testing.T) {
	st := inmem.New()
	g := New(Config{DefaultRetryBudget: 1}, st, st, nil)

	_, err := g.RecordRetry(context.Background(), "goal-1")
	require.NoError(t, err)

	allowed, err := g.CheckRetryBudget(context.Background(), "goal-1", 0)
	require.NoError(t, err)
	require.False(t, allowed, "cap of 1 is exhausted after one recorded retry")

	require.NoError(t, g.ClearRetryCount(context.Background(), "goal-1"))

	allowed, err = g.CheckRetryBudget(context.Background(), "goal-1", 0)
	require.NoError(t, err)
	require.True(t, allowed, "record_retry then clear_retry_count then check_retry_budget must allow again")
}
