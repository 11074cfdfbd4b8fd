package agents

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/costgovernor"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/llmmodel"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

type fakeModelClient struct{ reply string }

func (f *fakeModelClient) Complete(ctx context.Context, req *llmmodel.Request) (*llmmodel.Response, error) {
	return &llmmodel.Response{
		Content: []llmmodel.Message{{Parts: []llmmodel.Part{llmmodel.TextPart{Text: f.reply}}}},
		Usage:   llmmodel.TokenUsage{InputTokens: 10, OutputTokens: 20},
	}, nil
}

func (f *fakeModelClient) Stream(context.Context, *llmmodel.Request) (llmmodel.Streamer, error) {
	return nil, io.EOF
}

func newTestGateway(reply string) *gateway.Gateway {
	st := inmem.New()
	cost := costgovernor.New(costgovernor.Config{Enabled: false}, st, st, nil)
	return gateway.New(&fakeModelClient{reply: reply}, cost)
}

func TestAnalystRunProducesBrief(t *testing.T) {
	a := NewAnalyst(newTestGateway("brief text"))
	out, err := a.Run(context.Background(), core.Goal{UserID: "u1"}, AnalystInput{Topic: "acme corp"})
	require.NoError(t, err)
	result := out.(AnalystOutput)
	require.Equal(t, "brief text", result.Brief)
	require.Equal(t, int64(30), result.TokensUsed())
}

func TestAnalystRunRejectsWrongInputType(t *testing.T) {
	a := NewAnalyst(newTestGateway(""))
	_, err := a.Run(context.Background(), core.Goal{}, "not an AnalystInput")
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvalidInput))
}

func TestHunterRunRequiresProfile(t *testing.T) {
	h := NewHunter(newTestGateway(""))
	_, err := h.Run(context.Background(), core.Goal{}, HunterInput{})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvalidInput))
}

func TestHunterRunProducesLeads(t *testing.T) {
	h := NewHunter(newTestGateway("leads text"))
	out, err := h.Run(context.Background(), core.Goal{UserID: "u1"}, HunterInput{Profile: "VP of Ops, biotech"})
	require.NoError(t, err)
	require.Equal(t, "leads text", out.(HunterOutput).Leads)
}

func TestOperatorRunRequiresActionType(t *testing.T) {
	op := NewOperator(newTestGateway(""))
	_, err := op.Run(context.Background(), core.Goal{}, OperatorInput{Target: "jane@acme.com"})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvalidInput))
}

func TestOperatorRunDraftsAction(t *testing.T) {
	op := NewOperator(newTestGateway("draft text"))
	out, err := op.Run(context.Background(), core.Goal{UserID: "u1"}, OperatorInput{ActionType: "email_draft", Target: "jane@acme.com"})
	require.NoError(t, err)
	require.Equal(t, "draft text", out.(OperatorOutput).Draft)
}

func TestScoutRunRequiresEntities(t *testing.T) {
	s := NewScout(newTestGateway(""))
	_, err := s.Run(context.Background(), core.Goal{}, ScoutInput{})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvalidInput))
}

func TestScoutRunProducesFindings(t *testing.T) {
	s := NewScout(newTestGateway("findings text"))
	out, err := s.Run(context.Background(), core.Goal{UserID: "u1"}, ScoutInput{Entities: []string{"acme corp"}})
	require.NoError(t, err)
	require.Equal(t, "findings text", out.(ScoutOutput).Findings)
}

func TestScribeRunDefaultsKindToSummary(t *testing.T) {
	s := NewScribe(newTestGateway("summary text"))
	out, err := s.Run(context.Background(), core.Goal{UserID: "u1"}, ScribeInput{RawNotes: "met with jane, discussed renewal"})
	require.NoError(t, err)
	require.Equal(t, "summary text", out.(ScribeOutput).Summary)
}

func TestStrategistRunProducesStrategy(t *testing.T) {
	s := NewStrategist(newTestGateway("strategy text"))
	out, err := s.Run(context.Background(), core.Goal{UserID: "u1"}, StrategistInput{Account: "acme corp"})
	require.NoError(t, err)
	require.Equal(t, "strategy text", out.(StrategistOutput).Strategy)
}

func TestVerifierRunRequiresSources(t *testing.T) {
	v := NewVerifier(newTestGateway(""))
	_, err := v.Run(context.Background(), core.Goal{}, VerifierInput{Claim: "x"})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindInvalidInput))
}

func TestVerifierRunDetectsSupportedClaim(t *testing.T) {
	v := NewVerifier(newTestGateway("SUPPORTED\nthe source confirms this directly"))
	out, err := v.Run(context.Background(), core.Goal{UserID: "u1"}, VerifierInput{Claim: "x", Sources: []string{"doc1"}})
	require.NoError(t, err)
	result := out.(VerifierOutput)
	require.True(t, result.Supported)
}

func TestVerifierRunDetectsUnsupportedClaim(t *testing.T) {
	v := NewVerifier(newTestGateway("UNSUPPORTED\nno source mentions this"))
	out, err := v.Run(context.Background(), core.Goal{UserID: "u1"}, VerifierInput{Claim: "x", Sources: []string{"doc1"}})
	require.NoError(t, err)
	require.False(t, out.(VerifierOutput).Supported)
}

func TestEveryAgentReportsItsRegisteredName(t *testing.T) {
	gw := newTestGateway("")
	require.Equal(t, AnalystName, NewAnalyst(gw).Name())
	require.Equal(t, HunterName, NewHunter(gw).Name())
	require.Equal(t, OperatorName, NewOperator(gw).Name())
	require.Equal(t, ScoutName, NewScout(gw).Name())
	require.Equal(t, ScribeName, NewScribe(gw).Name())
	require.Equal(t, StrategistName, NewStrategist(gw).Name())
	require.Equal(t, VerifierName, NewVerifier(gw).Name())
}
