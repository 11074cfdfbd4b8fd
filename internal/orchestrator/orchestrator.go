// Package orchestrator implements the Agent Orchestrator: it spawns
// concrete agents by name, bounds how many run concurrently, and
// aggregates their results for callers that fan work out in parallel or
// run it as an ordered sequence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/hooks"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// Ident is the strong type for an agent's registered name, avoiding
// accidental mixing with free-form strings when agents are looked up by
// name in maps or requests.
type Ident string

// Agent is the capability interface every concrete agent kind
// implements. Run receives a Goal and arbitrary structured input and
// returns arbitrary structured output; the Orchestrator does not
// interpret either, only the concrete agent and its caller do.
type Agent interface {
	Name() Ident
	Run(ctx context.Context, goal core.Goal, input any) (any, error)
}

// tokenUser is implemented by agent outputs that track their own token
// spend, so the Orchestrator can populate AgentResult.TokensUsed without
// depending on any concrete agent's output type.
type tokenUser interface {
	TokensUsed() int64
}

// RetryBudget gates how many times the Orchestrator may retry a failed
// agent run for one goal, matching the Cost Governor's per-goal retry
// budget. A nil RetryBudget disables the retry loop: SpawnAndExecute
// returns the first result as-is, same as before retries existed.
type RetryBudget interface {
	CheckRetryBudget(ctx context.Context, goalID string, cap int) (bool, error)
	RecordRetry(ctx context.Context, goalID string) (int, error)
	ClearRetryCount(ctx context.Context, goalID string) error
}

// Request is one unit of work to submit to the Orchestrator.
type Request struct {
	Agent Ident
	Goal  core.Goal
	Input any
}

// Config bounds the Orchestrator's behavior.
type Config struct {
	// MaxConcurrentAgents caps how many agents ExecuteParallel runs at
	// once. Values <= 0 default to 8.
	MaxConcurrentAgents int
	// RetryBudgetCap overrides the Cost Governor's DefaultRetryBudget for
	// every goal the Orchestrator retries. Zero defers to the governor's
	// own default.
	RetryBudgetCap int
}

// Orchestrator dispatches work to registered Agents.
type Orchestrator struct {
	cfg         Config
	agents      map[Ident]Agent
	bus         hooks.Bus
	logger      telemetry.Logger
	metrics     telemetry.Metrics
	retryBudget RetryBudget
	mu          sync.RWMutex
}

// New constructs an Orchestrator with no agents registered. Use Register
// to add concrete agent kinds before calling Spawn/Execute*.
func New(cfg Config, bus hooks.Bus, logger telemetry.Logger, metrics telemetry.Metrics) *Orchestrator {
	if cfg.MaxConcurrentAgents <= 0 {
		cfg.MaxConcurrentAgents = 8
	}
	if bus == nil {
		bus = hooks.NewBus()
	}
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &Orchestrator{cfg: cfg, agents: make(map[Ident]Agent), bus: bus, logger: logger, metrics: metrics}
}

// WithRetryBudget enables the retry loop in SpawnAndExecute: a retryable
// failure is retried only while budget still allows it for that goal,
// recording each attempt via RecordRetry.
func (o *Orchestrator) WithRetryBudget(budget RetryBudget) *Orchestrator {
	o.retryBudget = budget
	return o
}

// Register adds an agent kind to the Orchestrator's registry. Calling
// Register twice for the same Ident replaces the previous registration.
func (o *Orchestrator) Register(a Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.Name()] = a
}

func (o *Orchestrator) lookup(ident Ident) (Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[ident]
	if !ok {
		return nil, coreerrors.New(coreerrors.KindNotFound, fmt.Sprintf("orchestrator: agent %q is not registered", ident))
	}
	return a, nil
}

// SpawnAndExecute runs a single agent to completion and returns its
// result as an AgentResult, never propagating the agent's own error: a
// failed run is reported via AgentResult.Success/Err so callers
// aggregating many agents can distinguish "this one failed" from "the
// orchestrator itself failed to dispatch". When a RetryBudget is
// configured via WithRetryBudget and the failure's RetryHint says it is
// worth another attempt, SpawnAndExecute retries it itself, gated by the
// goal's remaining retry budget, rather than leaving that decision to the
// caller.
func (o *Orchestrator) SpawnAndExecute(ctx context.Context, req Request) core.AgentResult {
	agent, err := o.lookup(req.Agent)
	if err != nil {
		return core.AgentResult{AgentName: string(req.Agent), Success: false, Err: err}
	}

	result := o.runOnce(ctx, req, agent)
	retried := false
	for o.shouldRetry(ctx, req, result) {
		retried = true
		o.logger.Warn(ctx, "orchestrator: retrying agent within retry budget", "agent", req.Agent, "goal_id", req.Goal.ID)
		result = o.runOnce(ctx, req, agent)
	}
	if retried && result.Success && o.retryBudget != nil {
		if err := o.retryBudget.ClearRetryCount(ctx, req.Goal.ID); err != nil {
			o.logger.Warn(ctx, "orchestrator: failed to clear retry count after recovery", "agent", req.Agent, "goal_id", req.Goal.ID, "error", err)
		}
	}
	return result
}

// shouldRetry reports whether result warrants another attempt of req and,
// if so, records the retry against the goal's budget. It returns false
// without recording anything when no RetryBudget is configured, the
// failure was not flagged retryable, or the budget is exhausted.
func (o *Orchestrator) shouldRetry(ctx context.Context, req Request, result core.AgentResult) bool {
	if o.retryBudget == nil || result.Success || result.RetryHint == nil || !result.RetryHint.Retryable {
		return false
	}
	allowed, err := o.retryBudget.CheckRetryBudget(ctx, req.Goal.ID, o.cfg.RetryBudgetCap)
	if err != nil || !allowed {
		return false
	}
	if _, err := o.retryBudget.RecordRetry(ctx, req.Goal.ID); err != nil {
		return false
	}
	return true
}

func (o *Orchestrator) runOnce(ctx context.Context, req Request, agent Agent) core.AgentResult {
	_ = o.bus.Publish(ctx, hooks.Event{Type: hooks.EventAgentStarted, At: time.Now().UTC(), UserID: req.Goal.UserID, AgentName: string(req.Agent), GoalID: req.Goal.ID})

	start := time.Now()
	data, runErr := agent.Run(ctx, req.Goal, req.Input)
	elapsed := time.Since(start)

	result := core.AgentResult{
		AgentName:       string(req.Agent),
		Success:         runErr == nil,
		Data:            data,
		Err:             runErr,
		ExecutionTimeMS: elapsed.Milliseconds(),
	}
	if tu, ok := data.(tokenUser); ok {
		result.TokensUsed = tu.TokensUsed()
	}
	if runErr != nil {
		result.RetryHint = retryHintFor(runErr)
	}

	evtType := hooks.EventAgentCompleted
	if runErr != nil {
		evtType = hooks.EventAgentFailed
		o.logger.Warn(ctx, "orchestrator: agent run failed", "agent", req.Agent, "goal_id", req.Goal.ID, "error", runErr)
	}
	_ = o.bus.Publish(ctx, hooks.Event{Type: evtType, At: time.Now().UTC(), UserID: req.Goal.UserID, AgentName: string(req.Agent), GoalID: req.Goal.ID, Err: runErr})
	o.metrics.RecordTimer("orchestrator.agent_duration_ms", elapsed, "agent", string(req.Agent))

	return result
}

// ExecuteParallel runs every request concurrently, bounded by
// MaxConcurrentAgents, and aggregates the results into an
// OrchestrationResult. It always returns a complete result set; a failed
// agent contributes a Success: false entry rather than aborting the
// others.
func (o *Orchestrator) ExecuteParallel(ctx context.Context, reqs []Request) core.OrchestrationResult {
	sem := make(chan struct{}, o.cfg.MaxConcurrentAgents)
	results := make([]core.AgentResult, len(reqs))

	var wg sync.WaitGroup
	start := time.Now()
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.SpawnAndExecute(ctx, req)
		}(i, req)
	}
	wg.Wait()

	return aggregate(results, time.Since(start))
}

// ExecuteSequential runs every request in order, stopping at the first
// failure only if stopOnFailure is true; otherwise it runs the full list
// and aggregates whatever results.
func (o *Orchestrator) ExecuteSequential(ctx context.Context, reqs []Request, stopOnFailure bool) core.OrchestrationResult {
	results := make([]core.AgentResult, 0, len(reqs))
	start := time.Now()
	for _, req := range reqs {
		res := o.SpawnAndExecute(ctx, req)
		results = append(results, res)
		if stopOnFailure && !res.Success {
			break
		}
	}
	return aggregate(results, time.Since(start))
}

// retryHintFor classifies a failed agent run so shouldRetry knows whether
// it is worth spending another entry from the goal's retry budget rather
// than surfacing the failure straight to the user. Only the Cost
// Governor's and Gateway's own transient/circuit-open classifications are
// treated as retryable; an invalid-input or leakage failure will not
// improve on retry.
func retryHintFor(err error) *core.RetryHint {
	var ce *coreerrors.Error
	if !errors.As(err, &ce) {
		return &core.RetryHint{Retryable: false, Reason: "unclassified error"}
	}
	switch ce.Kind {
	case coreerrors.KindTransient, coreerrors.KindCircuitOpen:
		return &core.RetryHint{Retryable: true, Reason: string(ce.Kind)}
	default:
		return &core.RetryHint{Retryable: false, Reason: string(ce.Kind)}
	}
}

func aggregate(results []core.AgentResult, elapsed time.Duration) core.OrchestrationResult {
	out := core.OrchestrationResult{Results: results, TotalExecutionTimeMS: elapsed.Milliseconds()}
	for _, r := range results {
		out.TotalTokens += r.TokensUsed
		if r.Success {
			out.SuccessCount++
		} else {
			out.FailedCount++
		}
	}
	return out
}
