package agents

import (
	"context"
	"strings"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// ScoutName is the Orchestrator registration name for the Scout agent.
const ScoutName orchestrator.Ident = "scout"

// ScoutInput asks the Scout to look for market signals on a set of
// tracked entities (competitors, accounts).
type ScoutInput struct {
	Entities    []string
	SignalTypes []string
}

// ScoutOutput is the set of signal candidates the Scout found, still
// unranked and unfiltered; the Background Job Runner's signal-scan job
// applies relevance scoring and priority mapping downstream.
type ScoutOutput struct {
	Findings string
	tokens   int64
}

func (o ScoutOutput) TokensUsed() int64 { return o.tokens }

// Scout surfaces market signals for a set of tracked entities.
type Scout struct{ base }

// NewScout constructs a Scout agent backed by gw.
func NewScout(gw *gateway.Gateway) *Scout { return &Scout{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (s *Scout) Name() orchestrator.Ident { return ScoutName }

// Run implements orchestrator.Agent.
func (s *Scout) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(ScoutInput)
	if !ok {
		return nil, invalidInput(ScoutName, "ScoutInput", input)
	}
	if len(in.Entities) == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "scout: entities is required")
	}
	prompt := "Scan for recent market signals involving: " + strings.Join(in.Entities, ", ")
	if len(in.SignalTypes) > 0 {
		prompt += "\nSignal types of interest: " + strings.Join(in.SignalTypes, ", ")
	}
	text, tokens, err := s.callText(ctx, goal, prompt, false)
	if err != nil {
		return nil, err
	}
	return ScoutOutput{Findings: text, tokens: tokens}, nil
}
