package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/hooks"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/store/inmem"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

var errBoom = errors.New("boom")

type stepAgent struct {
	name orchestrator.Ident
	err  error
}

func (a stepAgent) Name() orchestrator.Ident                         { return a.name }
func (a stepAgent) Run(context.Context, core.Goal, any) (any, error) { return nil, a.err }

func newTestOrchestrator() *orchestrator.Orchestrator {
	o := orchestrator.New(orchestrator.Config{}, hooks.NewBus(), telemetry.NoopLogger{}, telemetry.NoopMetrics{})
	o.Register(stepAgent{name: "scribe"})
	return o
}

func TestRunCompletesAllSteps(t *testing.T) {
	o := newTestOrchestrator()
	wf := Workflow{
		ID:   "wf-1",
		Name: "draft-followup",
		Goal: core.Goal{ID: "g1", UserID: "u1"},
		Steps: []Step{
			{Name: "draft", Agent: "scribe"},
			{Name: "send", Agent: "scribe"},
		},
	}
	result, err := Run(context.Background(), o, nil, wf)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 2)
}

func TestRunPausesForApprovalAndPersists(t *testing.T) {
	o := newTestOrchestrator()
	st := inmem.New()
	wf := Workflow{
		ID:   "wf-2",
		Name: "send-email",
		Goal: core.Goal{ID: "g2", UserID: "u1"},
		Steps: []Step{
			{Name: "draft", Agent: "scribe"},
			{Name: "send", Agent: "scribe", RequireApproval: true},
		},
		Approval: func(context.Context, Step) (bool, error) { return false, nil },
	}

	result, err := Run(context.Background(), o, st, wf)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, result.Status)

	state, err := st.LoadPendingWorkflow(context.Background(), "wf-2")
	require.NoError(t, err)
	require.Equal(t, 1, state.NextStep)
}

func TestResumeContinuesAfterApproval(t *testing.T) {
	o := newTestOrchestrator()
	st := inmem.New()
	approved := false
	wf := Workflow{
		ID:   "wf-3",
		Name: "send-email",
		Goal: core.Goal{ID: "g3", UserID: "u1"},
		Steps: []Step{
			{Name: "draft", Agent: "scribe"},
			{Name: "send", Agent: "scribe", RequireApproval: true},
		},
		Approval: func(context.Context, Step) (bool, error) { return approved, nil },
	}

	result, err := Run(context.Background(), o, st, wf)
	require.NoError(t, err)
	require.Equal(t, StatusAwaitingApproval, result.Status)

	approved = true
	result, err = Resume(context.Background(), o, st, wf)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Steps, 1, "Resume should only re-run the steps from the pause point onward")

	_, err = st.LoadPendingWorkflow(context.Background(), "wf-3")
	require.Error(t, err, "completing the workflow should clear its pending state")
}

func TestRunAbortsOnFailureByDefault(t *testing.T) {
	o := orchestrator.New(orchestrator.Config{}, hooks.NewBus(), telemetry.NoopLogger{}, telemetry.NoopMetrics{})
	o.Register(stepAgent{name: "scribe", err: errBoom})
	wf := Workflow{
		ID:   "wf-4",
		Name: "draft-followup",
		Goal: core.Goal{ID: "g4", UserID: "u1"},
		Steps: []Step{
			{Name: "draft", Agent: "scribe"},
			{Name: "send", Agent: "scribe"},
		},
	}
	result, err := Run(context.Background(), o, nil, wf)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.Steps, 1, "the second step should not run after the first aborts")
}
