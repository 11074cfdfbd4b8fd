package agents

import (
	"context"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// OperatorName is the Orchestrator registration name for the Operator
// agent.
const OperatorName orchestrator.Ident = "operator"

// OperatorInput asks the Operator to draft an action to take on the
// user's behalf: an email, a CRM field update, a task. The Operator
// never executes the action itself; it drafts it for a workflow's
// approval gate to release.
type OperatorInput struct {
	ActionType string // e.g. "email_draft", "crm_update"
	Target     string
	Objective  string
}

// OperatorOutput is the drafted action content, pending approval.
type OperatorOutput struct {
	Draft  string
	tokens int64
}

func (o OperatorOutput) TokensUsed() int64 { return o.tokens }

// Operator drafts outbound actions for human approval. It never sends
// or applies anything directly; that is the workflow layer's job once
// a step's approval callback clears it.
type Operator struct{ base }

// NewOperator constructs an Operator agent backed by gw.
func NewOperator(gw *gateway.Gateway) *Operator { return &Operator{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (op *Operator) Name() orchestrator.Ident { return OperatorName }

// Run implements orchestrator.Agent.
func (op *Operator) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(OperatorInput)
	if !ok {
		return nil, invalidInput(OperatorName, "OperatorInput", input)
	}
	if in.ActionType == "" {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "operator: action_type is required")
	}
	prompt := "Draft a " + in.ActionType + " for " + in.Target + " with the objective: " + in.Objective
	text, tokens, err := op.callText(ctx, goal, prompt, false)
	if err != nil {
		return nil, err
	}
	return OperatorOutput{Draft: text, tokens: tokens}, nil
}
