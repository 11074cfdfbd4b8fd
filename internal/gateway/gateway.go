// Package gateway implements the LLM Gateway: the single path every
// component uses to call a model provider. It composes, in order, a
// budget check against the Cost Governor, circuit-breaker admission,
// retry-with-backoff, adaptive rate limiting (applied to the wrapped
// llmmodel.Client before construction, so every retry attempt passes
// through it), and the vendor call itself.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aria-platform/aria-core/internal/circuitbreaker"
	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/costgovernor"
	"github.com/aria-platform/aria-core/internal/llmmodel"
	"github.com/aria-platform/aria-core/internal/ratelimit"
	"github.com/aria-platform/aria-core/internal/retry"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// Option configures a Gateway during construction.
type Option func(*Gateway)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg retry.Config) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithBreakerConfig overrides the default circuit breaker policy.
func WithBreakerConfig(cfg circuitbreaker.Config) Option {
	return func(g *Gateway) { g.breakers = circuitbreaker.NewRegistry(cfg) }
}

// WithTelemetry wires structured logging, metrics, and tracing.
func WithTelemetry(logger telemetry.Logger, metrics telemetry.Metrics, tracer telemetry.Tracer) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
		if metrics != nil {
			g.metrics = metrics
		}
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// WithRateLimiter gives the Gateway a handle on the same Limiter wrapping
// its vendor client, so a budget-driven effort downgrade also throttles
// the shared vendor-facing rate rather than only affecting this one call.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(g *Gateway) { g.limiter = l }
}

// Gateway is the LLM Gateway. Construct one per model provider client
// (typically already wrapped with a ratelimit.Limiter's Middleware).
type Gateway struct {
	client   llmmodel.Client
	cost     *costgovernor.Governor
	breakers *circuitbreaker.Registry
	retry    retry.Config
	limiter  *ratelimit.Limiter

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  telemetry.Tracer
}

// New constructs a Gateway around a provider client and a Cost Governor.
func New(client llmmodel.Client, cost *costgovernor.Governor, opts ...Option) *Gateway {
	g := &Gateway{
		client:   client,
		cost:     cost,
		breakers: circuitbreaker.NewRegistry(circuitbreaker.DefaultConfig()),
		retry:    retry.DefaultConfig(),
		logger:   telemetry.NoopLogger{},
		metrics:  telemetry.NoopMetrics{},
		tracer:   telemetry.NoopTracer{},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func breakerKey(call core.LLMCall, effort core.Effort) string {
	return string(effort)
}

// Generate issues a non-streaming completion for call, enforcing the
// budget check, circuit breaker, and retry policy around the vendor call.
func (g *Gateway) Generate(ctx context.Context, call core.LLMCall) (*core.LLMResponse, error) {
	return g.generate(ctx, call, false)
}

// GenerateWithThinking behaves like Generate but forces extended thinking
// on, sized to call.Effort's thinking budget. Per the Anthropic contract,
// temperature is omitted whenever thinking is enabled; that is enforced
// inside internal/llmmodel/anthropic, not here.
func (g *Gateway) GenerateWithThinking(ctx context.Context, call core.LLMCall) (*core.LLMResponse, error) {
	call.Thinking = true
	return g.generate(ctx, call, true)
}

func (g *Gateway) generate(ctx context.Context, call core.LLMCall, thinking bool) (*core.LLMResponse, error) {
	effort, err := g.admit(ctx, call)
	if err != nil {
		return nil, err
	}
	call.Effort = effort

	breaker := g.breakers.For(breakerKey(call, effort))
	if !breaker.Allow() {
		return nil, coreerrors.New(coreerrors.KindCircuitOpen, "llm gateway: circuit open for effort "+string(effort))
	}

	req := buildRequest(call, thinking)

	var resp *llmmodel.Response
	callErr := retry.Do(ctx, g.retry, func(ctx context.Context) error {
		r, err := g.client.Complete(ctx, req)
		if err != nil {
			return classifyForRetry(err)
		}
		resp = r
		return nil
	})

	if callErr != nil {
		breaker.Failure()
		return nil, translateCallError(callErr)
	}
	breaker.Success()

	usage := resp.Usage
	if err := g.cost.RecordUsage(ctx, call.UserID, int64(usage.InputTokens), int64(usage.OutputTokens), 0); err != nil {
		g.logger.Warn(ctx, "llm gateway: failed to record usage", "user_id", call.UserID, "error", err)
	}

	return translateResponse(resp), nil
}

// Stream issues a streaming completion for call and returns a channel of
// core-level chunks. The channel is closed when the stream ends; the
// final receive error, if any, is sent as the last value's Err field.
func (g *Gateway) Stream(ctx context.Context, call core.LLMCall) (<-chan StreamChunk, error) {
	effort, err := g.admit(ctx, call)
	if err != nil {
		return nil, err
	}
	call.Effort = effort

	breaker := g.breakers.For(breakerKey(call, effort))
	if !breaker.Allow() {
		return nil, coreerrors.New(coreerrors.KindCircuitOpen, "llm gateway: circuit open for effort "+string(effort))
	}

	req := buildRequest(call, call.Thinking)
	streamer, err := g.client.Stream(ctx, req)
	if err != nil {
		breaker.Failure()
		return nil, translateCallError(classifyForRetry(err))
	}
	breaker.Success()

	out := make(chan StreamChunk, 16)
	go g.pumpStream(ctx, call, streamer, out)
	return out, nil
}

// StreamChunk is a core-level streaming increment, carrying either content
// or the terminal error/usage.
type StreamChunk struct {
	Text     string
	Thinking string
	Done     bool
	Usage    llmmodel.TokenUsage
	Err      error
}

func (g *Gateway) pumpStream(ctx context.Context, call core.LLMCall, streamer llmmodel.Streamer, out chan<- StreamChunk) {
	defer close(out)
	defer func() { _ = streamer.Close() }()

	var usage llmmodel.TokenUsage
	for {
		chunk, err := streamer.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				out <- StreamChunk{Done: true, Usage: usage}
			} else {
				out <- StreamChunk{Done: true, Err: err}
			}
			return
		}
		switch chunk.Type {
		case llmmodel.ChunkTypeText:
			if chunk.Message != nil {
				for _, p := range chunk.Message.Parts {
					if t, ok := p.(llmmodel.TextPart); ok {
						out <- StreamChunk{Text: t.Text}
					}
				}
			}
		case llmmodel.ChunkTypeThinking:
			out <- StreamChunk{Thinking: chunk.Thinking}
		case llmmodel.ChunkTypeUsage:
			if chunk.UsageDelta != nil {
				usage = *chunk.UsageDelta
			}
		case llmmodel.ChunkTypeStop:
			if err := g.cost.RecordUsage(ctx, call.UserID, int64(usage.InputTokens), int64(usage.OutputTokens), 0); err != nil {
				g.logger.Warn(ctx, "llm gateway: failed to record streamed usage", "user_id", call.UserID, "error", err)
			}
		}
	}
}

func (g *Gateway) admit(ctx context.Context, call core.LLMCall) (core.Effort, error) {
	status, err := g.cost.CheckBudget(ctx, call.UserID)
	if err != nil {
		return call.Effort, err
	}
	if !status.CanProceed {
		return call.Effort, coreerrors.New(coreerrors.KindBudgetExceeded, "llm gateway: daily token budget exhausted for user "+call.UserID)
	}
	if status.ShouldReduceEffort && g.limiter != nil {
		g.limiter.Throttle()
	}
	return g.cost.ApplyEffortPolicy(status, call.Effort), nil
}

func buildRequest(call core.LLMCall, thinking bool) *llmmodel.Request {
	req := &llmmodel.Request{
		RunID: call.GoalID,
		Messages: []*llmmodel.Message{
			{Role: llmmodel.ConversationRoleUser, Parts: []llmmodel.Part{llmmodel.TextPart{Text: call.Prompt}}},
		},
	}
	switch call.Effort {
	case core.EffortCritical:
		req.ModelClass = llmmodel.ModelClassHighReasoning
	case core.EffortRoutine:
		req.ModelClass = llmmodel.ModelClassSmall
	default:
		req.ModelClass = llmmodel.ModelClassDefault
	}
	if thinking {
		req.Thinking = &llmmodel.ThinkingOptions{Enable: true, BudgetTokens: call.Effort.ThinkingBudgetTokens()}
	}
	return req
}

func translateResponse(resp *llmmodel.Response) *core.LLMResponse {
	reasoning := resp.Usage.TotalTokens - resp.Usage.InputTokens - resp.Usage.OutputTokens
	if reasoning < 0 {
		reasoning = 0
	}
	out := &core.LLMResponse{
		InputTokens:     int64(resp.Usage.InputTokens),
		OutputTokens:    int64(resp.Usage.OutputTokens),
		ReasoningTokens: int64(reasoning),
		StopReason:      resp.StopReason,
	}
	for _, msg := range resp.Content {
		for _, p := range msg.Parts {
			switch v := p.(type) {
			case llmmodel.TextPart:
				out.Text += v.Text
			case llmmodel.ThinkingPart:
				out.ThinkingText += v.Text
			}
		}
	}
	// Without a reported reasoning count, estimate it from the thinking
	// text at about 4 characters per token.
	if out.ReasoningTokens == 0 && out.ThinkingText != "" {
		out.ReasoningTokens = int64(len(out.ThinkingText) / 4)
	}
	return out
}

func classifyForRetry(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, llmmodel.ErrRateLimited) {
		return &retry.HTTPStatusError{StatusCode: 429, Message: err.Error()}
	}
	return err
}

func translateCallError(err error) error {
	if err == nil {
		return nil
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return coreerrors.Wrap(coreerrors.KindTransient, fmt.Sprintf("llm gateway: exhausted retries after %d attempts", exhausted.Attempts), exhausted.LastErr)
	}
	return coreerrors.Wrap(coreerrors.KindExecutionFailure, "llm gateway: vendor call failed", err)
}
