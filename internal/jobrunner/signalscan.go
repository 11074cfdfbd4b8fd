package jobrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aria-platform/aria-core/internal/agents"
	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/router"
	"github.com/aria-platform/aria-core/internal/store"
)

// idempotencyWindow stands in for "has this natural key ever been
// processed": long enough that a signal headline or debrief is never
// reprocessed in practice, while still reusing store.DedupStore's
// (key, window) contract instead of introducing a second store
// interface for the same recency-check shape.
const idempotencyWindow = 365 * 24 * time.Hour

// EntitySource supplies the tracked entities a signal scan watches for a
// user: the union of their tracked competitors, active leads, and
// previously seen signal subjects.
type EntitySource interface {
	TrackedEntities(ctx context.Context, userID string) ([]string, error)
}

// SignalScanJob scans tracked entities for market signals and routes
// each one through the Proactive Router at a priority derived from its
// relevance score.
type SignalScanJob struct {
	orch     *orchestrator.Orchestrator
	entities EntitySource
	router   *router.Router
	seen     store.DedupStore
}

// NewSignalScanJob constructs a SignalScanJob.
func NewSignalScanJob(orch *orchestrator.Orchestrator, entities EntitySource, r *router.Router, seen store.DedupStore) *SignalScanJob {
	return &SignalScanJob{orch: orch, entities: entities, router: r, seen: seen}
}

func (j *SignalScanJob) Name() string              { return "signal_scan" }
func (j *SignalScanJob) Cadence() string           { return "@every 15m" }
func (j *SignalScanJob) InBusinessHoursOnly() bool { return true }

func (j *SignalScanJob) RunForUser(ctx context.Context, user core.User, now time.Time) (int, error) {
	tracked, err := j.entities.TrackedEntities(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("signal_scan: load tracked entities: %w", err)
	}
	if len(tracked) == 0 {
		return 0, nil
	}

	goal := core.Goal{ID: uuid.New().String(), UserID: user.ID, Description: "signal scan", CreatedAt: now}
	result := j.orch.SpawnAndExecute(ctx, orchestrator.Request{
		Agent: agents.ScoutName,
		Goal:  goal,
		Input: agents.ScoutInput{Entities: tracked},
	})
	if !result.Success {
		return 0, fmt.Errorf("signal_scan: scout run failed: %w", result.Err)
	}
	out, ok := result.Data.(agents.ScoutOutput)
	if !ok {
		return 0, fmt.Errorf("signal_scan: unexpected scout output type %T", result.Data)
	}

	candidates, err := parseSignalCandidates(out.Findings)
	if err != nil {
		return 0, nil // no structured signals this round; not a job failure
	}

	produced := 0
	for _, c := range candidates {
		key := "signal:" + user.ID + ":" + c.Headline
		seen, err := j.seen.SeenRecently(ctx, key, now, idempotencyWindow)
		if err != nil {
			return produced, fmt.Errorf("signal_scan: idempotency check: %w", err)
		}
		if seen {
			continue
		}

		env := core.InsightEnvelope{
			UserID:   user.ID,
			Priority: priorityForRelevance(c.Relevance),
			Category: core.CategorySignal,
			Title:    c.Headline,
			Message:  c.Summary,
			Payload:  map[string]any{"relevance": c.Relevance},
		}
		if _, err := j.router.Route(ctx, env); err != nil {
			return produced, fmt.Errorf("signal_scan: route: %w", err)
		}
		produced++
	}
	return produced, nil
}
