package agents

import (
	"context"
	"strconv"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// HunterName is the Orchestrator registration name for the Hunter
// agent.
const HunterName orchestrator.Ident = "hunter"

// HunterInput asks the Hunter to prospect for new leads matching a
// target profile, distinct from the Scout's job of watching entities
// already known to the user.
type HunterInput struct {
	Profile  string
	Market   string
	MaxLeads int
}

// HunterOutput is the set of prospective leads the Hunter surfaced.
type HunterOutput struct {
	Leads  string
	tokens int64
}

func (o HunterOutput) TokensUsed() int64 { return o.tokens }

// Hunter prospects for new leads matching a target profile.
type Hunter struct{ base }

// NewHunter constructs a Hunter agent backed by gw.
func NewHunter(gw *gateway.Gateway) *Hunter { return &Hunter{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (h *Hunter) Name() orchestrator.Ident { return HunterName }

// Run implements orchestrator.Agent.
func (h *Hunter) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(HunterInput)
	if !ok {
		return nil, invalidInput(HunterName, "HunterInput", input)
	}
	if in.Profile == "" {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "hunter: profile is required")
	}
	max := in.MaxLeads
	if max <= 0 {
		max = 10
	}
	prompt := "Find up to " + strconv.Itoa(max) + " prospective leads matching this profile: " + in.Profile
	if in.Market != "" {
		prompt += "\nMarket: " + in.Market
	}
	text, tokens, err := h.callText(ctx, goal, prompt, false)
	if err != nil {
		return nil, err
	}
	return HunterOutput{Leads: text, tokens: tokens}, nil
}
