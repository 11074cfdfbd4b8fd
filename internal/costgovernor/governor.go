// Package costgovernor enforces per-user-per-day token budgets and
// per-goal retry budgets for the LLM Gateway. It is the only component
// allowed to decide whether a model call may proceed.
package costgovernor

import (
	"context"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// Config controls the governor's budget policy.
type Config struct {
	// Enabled gates all enforcement; when false, CheckBudget always
	// allows the call at full effort, matching a local-dev posture.
	Enabled bool
	// DailyTokenBudget is the per-user-per-day token allowance.
	DailyTokenBudget int64
	// SoftLimitRatio is the utilization fraction (0..1) at which the
	// governor starts recommending effort downgrades instead of
	// rejecting calls outright.
	SoftLimitRatio float64
	// DefaultRetryBudget caps how many retries a goal may consume before
	// the governor refuses further attempts, absent an override.
	DefaultRetryBudget int
	// Clock returns the current time; overridable in tests.
	Clock func() time.Time
}

// Governor implements the Cost Governor component.
type Governor struct {
	cfg     Config
	usage   store.UsageStore
	retries store.RetryBudgetStore
	metrics telemetry.Metrics
}

// New constructs a Governor backed by the given stores.
func New(cfg Config, usage store.UsageStore, retries store.RetryBudgetStore, metrics telemetry.Metrics) *Governor {
	if cfg.SoftLimitRatio <= 0 {
		cfg.SoftLimitRatio = 0.8
	}
	if cfg.DefaultRetryBudget <= 0 {
		cfg.DefaultRetryBudget = 3
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &Governor{cfg: cfg, usage: usage, retries: retries, metrics: metrics}
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

// CheckBudget loads today's usage for userID and derives a BudgetStatus.
// When utilization has crossed the soft limit, ShouldReduceEffort is set
// so the Gateway can downgrade the requested effort before spending more
// tokens; CanProceed only turns false at the hard 100% cutoff.
func (g *Governor) CheckBudget(ctx context.Context, userID string) (core.BudgetStatus, error) {
	if !g.cfg.Enabled {
		return core.BudgetStatus{UserID: userID, DailyBudget: g.cfg.DailyTokenBudget, CanProceed: true}, nil
	}
	rec, err := g.usage.LoadUsage(ctx, userID, dayKey(g.cfg.Clock()))
	if err != nil && err != store.ErrNotFound {
		// Fail open: a store outage must not block the Gateway.
		return core.BudgetStatus{UserID: userID, DailyBudget: g.cfg.DailyTokenBudget, CanProceed: true}, nil
	}
	return g.statusFor(userID, rec.TotalTokens()), nil
}

func (g *Governor) statusFor(userID string, used int64) core.BudgetStatus {
	budget := g.cfg.DailyTokenBudget
	remaining := budget - used
	if remaining < 0 {
		remaining = 0
	}
	var utilization float64
	if budget > 0 {
		utilization = float64(used) / float64(budget)
	}
	return core.BudgetStatus{
		UserID:             userID,
		TokensUsed:         used,
		TokensRemaining:    remaining,
		DailyBudget:        budget,
		UtilizationPercent: utilization * 100,
		CanProceed:         budget <= 0 || used < budget,
		ShouldReduceEffort: budget > 0 && utilization >= g.cfg.SoftLimitRatio,
	}
}

// ApplyEffortPolicy downgrades requested according to status, never
// upgrading. Call sites must use the returned effort, not the one on the
// original LLMCall.
func (g *Governor) ApplyEffortPolicy(status core.BudgetStatus, requested core.Effort) core.Effort {
	if !status.ShouldReduceEffort {
		return requested
	}
	return requested.Downgrade()
}

// RecordUsage persists the tokens consumed by a completed call. Per the
// fail-open policy, a store error here is logged by the caller via the
// returned error but must not unwind or retry the already-completed model
// call.
func (g *Governor) RecordUsage(ctx context.Context, userID string, inputTokens, outputTokens, reasoningTokens int64) error {
	if !g.cfg.Enabled {
		return nil
	}
	rec, err := g.usage.IncrementUsage(ctx, userID, dayKey(g.cfg.Clock()), inputTokens, outputTokens, reasoningTokens)
	if err != nil {
		return err
	}
	g.metrics.RecordGauge("cost_governor.daily_tokens_used", float64(rec.TotalTokens()), "user_id", userID)
	return nil
}

// CheckRetryBudget reports whether goalID may retry without consuming a
// retry itself. cap, when non-zero, overrides DefaultRetryBudget for this
// goal. Callers decide to retry based on this result, then call
// RecordRetry once the retry is actually attempted.
func (g *Governor) CheckRetryBudget(ctx context.Context, goalID string, cap int) (allowed bool, err error) {
	if cap <= 0 {
		cap = g.cfg.DefaultRetryBudget
	}
	consumed, err := g.retries.GetRetry(ctx, goalID)
	if err != nil {
		// Fail open: an unavailable retry store must not stop the goal.
		return true, nil
	}
	return consumed < cap, nil
}

// RecordRetry increments and returns the retry count consumed by goalID.
// Call this once a retry attempt actually starts, after CheckRetryBudget
// allowed it.
func (g *Governor) RecordRetry(ctx context.Context, goalID string) (consumed int, err error) {
	consumed, err = g.retries.IncrementRetry(ctx, goalID)
	if err != nil {
		return 0, err
	}
	return consumed, nil
}

// ClearRetryCount clears a goal's consumed retry count, e.g. after the
// goal completes successfully. record_retry, then clear_retry_count, then
// check_retry_budget must report the goal as allowed again.
func (g *Governor) ClearRetryCount(ctx context.Context, goalID string) error {
	return g.retries.ResetRetry(ctx, goalID)
}
