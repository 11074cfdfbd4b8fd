package agents

import (
	"context"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/orchestrator"
)

// ScribeName is the Orchestrator registration name for the Scribe agent.
const ScribeName orchestrator.Ident = "scribe"

// ScribeInput asks the Scribe to turn raw notes or a transcript into a
// structured summary, such as a call debrief or weekly digest section.
type ScribeInput struct {
	Kind      string // e.g. "call_debrief", "weekly_digest_section"
	RawNotes  string
	Recipient string
}

// ScribeOutput is the structured write-up the Scribe produced.
type ScribeOutput struct {
	Summary string
	tokens  int64
}

func (o ScribeOutput) TokensUsed() int64 { return o.tokens }

// Scribe turns unstructured notes into a structured, audience-ready
// write-up. It never uses extended thinking: summarization is a
// transcription task, not a reasoning one.
type Scribe struct{ base }

// NewScribe constructs a Scribe agent backed by gw.
func NewScribe(gw *gateway.Gateway) *Scribe { return &Scribe{base{gw: gw}} }

// Name implements orchestrator.Agent.
func (s *Scribe) Name() orchestrator.Ident { return ScribeName }

// Run implements orchestrator.Agent.
func (s *Scribe) Run(ctx context.Context, goal core.Goal, input any) (any, error) {
	in, ok := input.(ScribeInput)
	if !ok {
		return nil, invalidInput(ScribeName, "ScribeInput", input)
	}
	kind := in.Kind
	if kind == "" {
		kind = "summary"
	}
	prompt := "Write a " + kind + " from the following notes:\n" + in.RawNotes
	if in.Recipient != "" {
		prompt += "\nAudience: " + in.Recipient
	}
	text, tokens, err := s.callText(ctx, goal, prompt, false)
	if err != nil {
		return nil, err
	}
	return ScribeOutput{Summary: text, tokens: tokens}, nil
}
