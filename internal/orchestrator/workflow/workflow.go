// Package workflow composes Orchestrator agent calls into an ordered
// sequence of steps, with optional human-approval gates and configurable
// failure handling. It replaces the durable-workflow-engine layer goa-ai
// builds on Temporal: ARIA's workflows are short-lived, in-process, and
// persist their approval state through internal/store rather than a
// workflow engine's event history.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/store"
)

// Status is the lifecycle state of a Workflow run.
type Status string

const (
	StatusPending          Status = "pending"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// OnFailure controls what a Workflow does when a step fails.
type OnFailure string

const (
	// OnFailureAbort stops the workflow at the failed step.
	OnFailureAbort OnFailure = "abort"
	// OnFailureSkip continues to the next step, recording the failure.
	OnFailureSkip OnFailure = "skip"
)

// ApprovalFunc gates a step behind human approval. It returns whether
// the step may proceed; returning an error aborts the workflow
// regardless of OnFailure.
type ApprovalFunc func(ctx context.Context, step Step) (approved bool, err error)

// Step is one stage of a Workflow.
type Step struct {
	Name            string
	Agent           orchestrator.Ident
	Input           any
	RequireApproval bool
	OnFailure       OnFailure
}

// Workflow is an ordered sequence of Steps executed against a single
// Goal.
type Workflow struct {
	// ID identifies this workflow run for persistence across an
	// approval-gate pause. Required if any Step sets RequireApproval and
	// a WorkflowStore is passed to Run.
	ID       string
	Name     string
	Goal     core.Goal
	Steps    []Step
	Approval ApprovalFunc
}

// StepResult is the outcome of a single executed Step.
type StepResult struct {
	Step   Step
	Result core.AgentResult
	Status Status
}

// Result is the outcome of running a Workflow to completion or abort.
type Result struct {
	Status  Status
	Steps   []StepResult
	EndedAt time.Time
}

// Run executes every step of wf in order against orch, respecting each
// step's RequireApproval gate and OnFailure policy. It stops at the
// first step whose approval is denied or whose failure policy is abort.
// When a step pauses for approval, and workflows is non-nil, its state
// is persisted under wf.ID so Resume can continue it after a process
// restart; workflows may be nil to run a workflow with no approval
// steps, or to keep the prior in-memory-only behavior.
func Run(ctx context.Context, orch *orchestrator.Orchestrator, workflows store.WorkflowStore, wf Workflow) (Result, error) {
	return runFrom(ctx, orch, workflows, wf, 0)
}

// Resume reconstructs a workflow paused at an approval gate from its
// persisted WorkflowState and continues executing from the step it
// stopped at. Callers call this after their own approval decision has
// been recorded, typically in response to a user.approve transport
// message.
func Resume(ctx context.Context, orch *orchestrator.Orchestrator, workflows store.WorkflowStore, wf Workflow) (Result, error) {
	state, err := workflows.LoadPendingWorkflow(ctx, wf.ID)
	if err != nil {
		return Result{}, fmt.Errorf("workflow: resume %q: %w", wf.ID, err)
	}
	return runFrom(ctx, orch, workflows, wf, state.NextStep)
}

func runFrom(ctx context.Context, orch *orchestrator.Orchestrator, workflows store.WorkflowStore, wf Workflow, startAt int) (Result, error) {
	result := Result{Status: StatusRunning}

	for i := startAt; i < len(wf.Steps); i++ {
		step := wf.Steps[i]
		if step.RequireApproval {
			if wf.Approval == nil {
				return result, coreerrors.New(coreerrors.KindInvalidInput, fmt.Sprintf("workflow %q: step %q requires approval but no ApprovalFunc is configured", wf.Name, step.Name))
			}
			approved, err := wf.Approval(ctx, step)
			if err != nil {
				result.Status = StatusFailed
				result.EndedAt = time.Now().UTC()
				return result, err
			}
			if !approved {
				result.Status = StatusAwaitingApproval
				result.EndedAt = time.Now().UTC()
				result.Steps = append(result.Steps, StepResult{Step: step, Status: StatusAwaitingApproval})
				if workflows != nil {
					now := result.EndedAt
					if err := workflows.SavePendingWorkflow(ctx, core.WorkflowState{
						ID: wf.ID, WorkflowName: wf.Name, Goal: wf.Goal, NextStep: i, CreatedAt: now, UpdatedAt: now,
					}); err != nil {
						return result, fmt.Errorf("workflow %q: persist pending state: %w", wf.Name, err)
					}
				}
				return result, nil
			}
		}

		agentResult := orch.SpawnAndExecute(ctx, orchestrator.Request{Agent: step.Agent, Goal: wf.Goal, Input: step.Input})
		stepStatus := StatusCompleted
		if !agentResult.Success {
			stepStatus = StatusFailed
		}
		result.Steps = append(result.Steps, StepResult{Step: step, Result: agentResult, Status: stepStatus})

		if !agentResult.Success {
			policy := step.OnFailure
			if policy == "" {
				policy = OnFailureAbort
			}
			if policy == OnFailureAbort {
				result.Status = StatusFailed
				result.EndedAt = time.Now().UTC()
				if workflows != nil {
					if err := workflows.DeletePendingWorkflow(ctx, wf.ID); err != nil {
						return result, fmt.Errorf("workflow %q: clear pending state: %w", wf.Name, err)
					}
				}
				return result, nil
			}
		}
	}

	result.Status = StatusCompleted
	result.EndedAt = time.Now().UTC()
	if workflows != nil {
		if err := workflows.DeletePendingWorkflow(ctx, wf.ID); err != nil {
			return result, fmt.Errorf("workflow %q: clear pending state: %w", wf.Name, err)
		}
	}
	return result, nil
}
