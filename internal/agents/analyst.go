package agents

import (
	"context"
	"strings"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// AnalystName is the Orchestrator registration name for the Analyst agent.
const AnalystName orchestrator.Ident = "analyst"

// AnalystInput asks the Analyst to produce a research brief on a set of
// accounts or topics.
type AnalystInput struct {
	Topic    string
	Accounts []string
	Depth    string // "quick" | "thorough"
}

// AnalystOutput is the research brief the Analyst produced.
type AnalystOutput struct {
	Brief  string
	tokens int64
}

// TokensUsed implements the orchestrator's tokenUser interface.
func (o AnalystOutput) TokensUsed() int64 { return o.tokens }

// Analyst produces research briefs: synthesized findings across tracked
// accounts, market signals, and prior conversation context.
type Analyst struct{ base }

// NewAnalyst constructs an Analyst agent backed by gw.
func NewAnalyst(gw *gateway.Gateway) *Analyst { return &Analyst{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (a *Analyst) Name() orchestrator.Ident { return AnalystName }

// Run implements orchestrator.Agent.
func (a *Analyst) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(AnalystInput)
	if !ok {
		return nil, invalidInput(AnalystName, "AnalystInput", input)
	}
	prompt := "Produce a " + depthOrDefault(in.Depth) + " research brief on: " + in.Topic
	if len(in.Accounts) > 0 {
		prompt += "\nFocus accounts: " + strings.Join(in.Accounts, ", ")
	}
	text, tokens, err := a.callText(ctx, goal, prompt, in.Depth == "thorough")
	if err != nil {
		return nil, err
	}
	return AnalystOutput{Brief: text, tokens: tokens}, nil
}

func depthOrDefault(d string) string {
	if d == "" {
		return "quick"
	}
	return d
}
