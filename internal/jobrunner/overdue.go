package jobrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/router"
	"github.com/aria-platform/aria-core/internal/store"
)

// Commitment is a tracked promise (follow up, send pricing, etc.) with a
// due date the user has let slip.
type Commitment struct {
	ID      string
	Title   string
	Account string
	DueAt   time.Time
}

// CommitmentSource supplies a user's open commitments, overdue or not;
// the job itself decides which ones qualify.
type CommitmentSource interface {
	OpenCommitments(ctx context.Context, userID string) ([]Commitment, error)
}

// OverdueCommitmentJob surfaces commitments past their due date. It does
// not call the LLM Gateway at all — this is the "direct computation"
// variant of the per-invocation structure spec.md names alongside
// agent-backed jobs.
type OverdueCommitmentJob struct {
	commitments CommitmentSource
	router      *router.Router
	seen        store.DedupStore
}

// NewOverdueCommitmentJob constructs an OverdueCommitmentJob. The
// Orchestrator parameter is accepted for symmetry with the other jobs'
// constructors but unused, since this job performs no agent call.
func NewOverdueCommitmentJob(_ *orchestrator.Orchestrator, commitments CommitmentSource, r *router.Router, seen store.DedupStore) *OverdueCommitmentJob {
	return &OverdueCommitmentJob{commitments: commitments, router: r, seen: seen}
}

func (j *OverdueCommitmentJob) Name() string              { return "overdue_commitment_sweep" }
func (j *OverdueCommitmentJob) Cadence() string           { return "@every 15m" }
func (j *OverdueCommitmentJob) InBusinessHoursOnly() bool { return true }

func (j *OverdueCommitmentJob) RunForUser(ctx context.Context, user core.User, now time.Time) (int, error) {
	commitments, err := j.commitments.OpenCommitments(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("overdue_commitment_sweep: load commitments: %w", err)
	}
	if len(commitments) == 0 {
		return 0, nil
	}

	produced := 0
	for _, c := range commitments {
		if !c.DueAt.Before(now) {
			continue
		}
		key := "commitment:" + user.ID + ":" + c.ID
		seen, err := j.seen.SeenRecently(ctx, key, now, idempotencyWindow)
		if err != nil {
			return produced, fmt.Errorf("overdue_commitment_sweep: idempotency check: %w", err)
		}
		if seen {
			continue
		}

		overdueBy := now.Sub(c.DueAt)
		env := core.InsightEnvelope{
			UserID:   user.ID,
			Priority: priorityForOverdue(overdueBy),
			Category: core.CategoryCommitment,
			Title:    "Overdue: " + c.Title,
			Message:  fmt.Sprintf("%s is overdue for %s", c.Title, c.Account),
			Payload:  map[string]any{"commitment_id": c.ID, "overdue_hours": overdueBy.Hours()},
		}
		if _, err := j.router.Route(ctx, env); err != nil {
			return produced, fmt.Errorf("overdue_commitment_sweep: route: %w", err)
		}
		produced++
	}
	return produced, nil
}

// priorityForOverdue maps how far past due a commitment is to a
// delivery priority: the longer it has been ignored, the more
// insistently it is delivered.
func priorityForOverdue(overdueBy time.Duration) core.Priority {
	switch {
	case overdueBy >= 72*time.Hour:
		return core.PriorityHigh
	case overdueBy >= 24*time.Hour:
		return core.PriorityMedium
	default:
		return core.PriorityLow
	}
}
