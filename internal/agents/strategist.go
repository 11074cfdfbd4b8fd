package agents

import (
	"context"
	"strings"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// StrategistName is the Orchestrator registration name for the
// Strategist agent.
const StrategistName orchestrator.Ident = "strategist"

// StrategistInput asks the Strategist to propose an account strategy or
// battle card update.
type StrategistInput struct {
	Account     string
	Context     string
	Competitors []string
}

// StrategistOutput is the proposed strategy or battle card content.
type StrategistOutput struct {
	Strategy string
	tokens   int64
}

func (o StrategistOutput) TokensUsed() int64 { return o.tokens }

// Strategist proposes account strategies and battle-card content. It
// always reasons with extended thinking since these outputs drive rep
// behavior directly and warrant the deeper pass.
type Strategist struct{ base }

// NewStrategist constructs a Strategist agent backed by gw.
func NewStrategist(gw *gateway.Gateway) *Strategist { return &Strategist{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (s *Strategist) Name() orchestrator.Ident { return StrategistName }

// Run implements orchestrator.Agent.
func (s *Strategist) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(StrategistInput)
	if !ok {
		return nil, invalidInput(StrategistName, "StrategistInput", input)
	}
	prompt := "Propose a commercial strategy for account: " + in.Account
	if in.Context != "" {
		prompt += "\nContext: " + in.Context
	}
	if len(in.Competitors) > 0 {
		prompt += "\nKnown competitors: " + strings.Join(in.Competitors, ", ")
	}
	text, tokens, err := s.callText(ctx, goal, prompt, true)
	if err != nil {
		return nil, err
	}
	return StrategistOutput{Strategy: text, tokens: tokens}, nil
}
