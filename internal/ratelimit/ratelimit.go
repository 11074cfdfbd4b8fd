// Package ratelimit provides an adaptive tokens-per-minute limiter the LLM
// Gateway wraps around an llmmodel.Client. It estimates the token cost of
// each request, blocks callers until capacity is available, and adjusts its
// effective budget in response to rate-limit signals from the provider and
// to cost-governor throttle requests.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/aria-platform/aria-core/internal/llmmodel"
)

// Limiter applies an adaptive token-per-minute budget on top of an
// llmmodel.Client. Unlike a plain token bucket, its effective rate shrinks
// and regrows with the length of the current failure or success streak:
// a lone 429 halves the headroom above the floor, but a run of them
// collapses the budget fast,
// and recovery accelerates the longer calls keep succeeding.
type Limiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentTPM float64
	minTPM     float64
	maxTPM     float64
	stepTPM    float64

	failStreak int
	okStreak   int

	onChange func(newTPM float64)
}

type limitedClient struct {
	next    llmmodel.Client
	limiter *Limiter
}

// New constructs a process-local Limiter with an initial and ceiling
// tokens-per-minute budget. Its floor is fixed at 10% of initialTPM.
func New(initialTPM, maxTPM float64) *Limiter {
	if initialTPM <= 0 {
		initialTPM = 60000
	}
	if maxTPM <= 0 || maxTPM < initialTPM {
		maxTPM = initialTPM
	}
	minTPM := initialTPM * 0.1
	if minTPM < 1 {
		minTPM = 1
	}
	stepTPM := initialTPM * 0.05
	if stepTPM < 1 {
		stepTPM = 1
	}

	return &Limiter{
		limiter:    rate.NewLimiter(rate.Limit(initialTPM/60.0), int(initialTPM)),
		currentTPM: initialTPM,
		minTPM:     minTPM,
		maxTPM:     maxTPM,
		stepTPM:    stepTPM,
	}
}

// OnChange registers a callback invoked every time the effective budget
// moves, for telemetry. It replaces any previously registered callback.
func (l *Limiter) OnChange(fn func(newTPM float64)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

// Middleware returns an llmmodel.Client middleware that enforces the
// adaptive tokens-per-minute limit for both Complete and Stream calls.
func (l *Limiter) Middleware() func(llmmodel.Client) llmmodel.Client {
	return func(next llmmodel.Client) llmmodel.Client {
		if next == nil {
			return nil
		}
		return &limitedClient{next: next, limiter: l}
	}
}

func (c *limitedClient) Complete(ctx context.Context, req *llmmodel.Request) (*llmmodel.Response, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	resp, err := c.next.Complete(ctx, req)
	c.limiter.observe(err)
	return resp, err
}

func (c *limitedClient) Stream(ctx context.Context, req *llmmodel.Request) (llmmodel.Streamer, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return nil, err
	}
	stream, err := c.next.Stream(ctx, req)
	c.limiter.observe(err)
	return stream, err
}

func (l *Limiter) wait(ctx context.Context, req *llmmodel.Request) error {
	return l.limiter.WaitN(ctx, estimateTokens(req))
}

func (l *Limiter) observe(err error) {
	if err == nil {
		l.succeed()
		return
	}
	if errors.Is(err, llmmodel.ErrRateLimited) {
		l.fail()
	}
}

// Throttle forces an immediate backoff step, as if a rate-limit error had
// just been observed. The Gateway calls this when the Cost Governor
// reports a user's utilization past the soft limit, so a user burning through their
// budget on oversized calls also slows the shared vendor-facing rate
// rather than only having their own effort downgraded.
func (l *Limiter) Throttle() {
	l.fail()
}

func (l *Limiter) fail() {
	l.mu.Lock()
	l.okStreak = 0
	l.failStreak++
	// A streak of n consecutive failures divides what's left of the
	// budget above the floor by 2^n, so a single isolated 429 halves it
	// while a burst of them collapses it to the floor fast.
	shrink := l.currentTPM - l.minTPM
	for i := 0; i < l.failStreak && shrink > 1; i++ {
		shrink /= 2
	}
	if shrink <= 1 {
		shrink = 0
	}
	l.applyLocked(l.minTPM + shrink)
}

func (l *Limiter) succeed() {
	l.mu.Lock()
	l.failStreak = 0
	l.okStreak++
	streak := l.okStreak
	if streak > 20 {
		streak = 20
	}
	newTPM := l.currentTPM + l.stepTPM*float64(streak)
	if newTPM > l.maxTPM {
		newTPM = l.maxTPM
	}
	l.applyLocked(newTPM)
}

// applyLocked sets the limiter's effective rate to tpm. Callers must hold
// l.mu and not unlock it; applyLocked releases it.
func (l *Limiter) applyLocked(tpm float64) {
	if tpm < l.minTPM {
		tpm = l.minTPM
	}
	if tpm > l.maxTPM {
		tpm = l.maxTPM
	}
	changed := tpm != l.currentTPM
	l.currentTPM = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60.0))
	l.limiter.SetBurst(int(tpm))
	cb := l.onChange
	l.mu.Unlock()
	if changed && cb != nil {
		cb(tpm)
	}
}

// CurrentTPM reports the limiter's current effective budget, for telemetry.
func (l *Limiter) CurrentTPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentTPM
}

// estimateTokens computes a request's expected token cost: a
// characters-per-token heuristic for the prompt body, plus the model's
// max output tokens and any extended-thinking budget the caller
// requested, since both are reserved capacity the vendor counts against
// the same per-minute limit regardless of how much of it is actually
// used.
func estimateTokens(req *llmmodel.Request) int {
	charCount := 0
	for _, m := range req.Messages {
		for _, p := range m.Parts {
			switch v := p.(type) {
			case llmmodel.TextPart:
				charCount += len(v.Text)
			case llmmodel.ToolResultPart:
				if s, ok := v.Content.(string); ok {
					charCount += len(s)
				}
			}
		}
	}
	promptTokens := charCount / 3
	if promptTokens < 1 && charCount > 0 {
		promptTokens = 1
	}

	reserved := req.MaxTokens
	if req.Thinking != nil && req.Thinking.Enable {
		reserved += req.Thinking.BudgetTokens
	}

	total := promptTokens + reserved
	if total <= 0 {
		return 500
	}
	return total
}
