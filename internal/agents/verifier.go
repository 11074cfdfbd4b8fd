package agents

import (
	"context"
	"strings"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// VerifierName is the Orchestrator registration name for the Verifier
// agent.
const VerifierName orchestrator.Ident = "verifier"

// VerifierInput asks the Verifier to check a claim or another agent's
// output against a set of source documents, flagging unsupported
// assertions rather than producing new content.
type VerifierInput struct {
	Claim   string
	Sources []string
}

// VerifierOutput reports whether the claim held up and why.
type VerifierOutput struct {
	Supported bool
	Rationale string
	tokens    int64
}

func (o VerifierOutput) TokensUsed() int64 { return o.tokens }

// Verifier checks a claim against source material and reports whether
// it is supported. It is the component most directly responsible for
// catching ungrounded claims presented as fact.
type Verifier struct{ base }

// NewVerifier constructs a Verifier agent backed by gw.
func NewVerifier(gw *gateway.Gateway) *Verifier { return &Verifier{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (v *Verifier) Name() orchestrator.Ident { return VerifierName }

// Run implements orchestrator.Agent.
func (v *Verifier) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(VerifierInput)
	if !ok {
		return nil, invalidInput(VerifierName, "VerifierInput", input)
	}
	if len(in.Sources) == 0 {
		return nil, coreerrors.New(coreerrors.KindInvalidInput, "verifier: sources is required")
	}
	prompt := "Claim: " + in.Claim + "\n\nSources:\n" + strings.Join(in.Sources, "\n") +
		"\n\nState whether the claim is directly supported by the sources above. " +
		"Answer SUPPORTED or UNSUPPORTED on the first line, then explain why."
	text, tokens, err := v.callText(ctx, goal, prompt, true)
	if err != nil {
		return nil, err
	}
	return VerifierOutput{Supported: startsWithSupported(text), Rationale: text, tokens: tokens}, nil
}

func startsWithSupported(text string) bool {
	const want = "SUPPORTED"
	if len(text) < len(want) {
		return false
	}
	return text[:len(want)] == want
}
