// Package agents provides the concrete agent kinds ARIA dispatches
// through the Orchestrator: analyst, scout, strategist, scribe,
// verifier, operator, and hunter. Each wraps the LLM Gateway with a
// narrow, statically typed Input/Output pair; the capability set the
// original system expressed as a runtime validate_input check is
// subsumed here by Go's static typing — Run type-asserts its input
// once and returns an invalid_input error if the caller got the shape
// wrong, rather than running a separate validation pass.
package agents

import (
	"context"
	"fmt"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// base holds the dependency every concrete agent needs: a Gateway to
// call the model through.
type base struct {
	gw *gateway.Gateway
}

// callText runs a single non-streaming completion at complex effort and
// returns the resulting text and the tokens it used. Gateway errors are
// returned unchanged; the Orchestrator reports them through
// core.AgentResult.
func (b base) callText(ctx context.Context, goal core.Goal, prompt string, thinking bool) (string, int64, error) {
	call := core.LLMCall{UserID: goal.UserID, GoalID: goal.ID, Prompt: prompt, Effort: core.EffortComplex, Thinking: thinking}
	var resp *core.LLMResponse
	var err error
	if thinking {
		resp, err = b.gw.GenerateWithThinking(ctx, call)
	} else {
		resp, err = b.gw.Generate(ctx, call)
	}
	if err != nil {
		return "", 0, err
	}
	return resp.Text, resp.InputTokens + resp.OutputTokens + resp.ReasoningTokens, nil
}

func invalidInput(agentName orchestrator.Ident, want string, got any) error {
	return coreerrors.New(coreerrors.KindInvalidInput, fmt.Sprintf("%s: expected %s input, got %T", agentName, want, got))
}
