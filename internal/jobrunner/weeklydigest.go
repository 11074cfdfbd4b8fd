package jobrunner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aria-platform/aria-core/internal/agents"
	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/orchestrator"
	"github.com/aria-platform/aria-core/internal/router"
	"github.com/aria-platform/aria-core/internal/store"
)

// WeeklyDigestJob builds a weekly digest for each user from whatever low
// priority insights accumulated in their briefing queue, plus a
// Scribe-generated summary, and delivers it Monday 07:00 in the user's
// own timezone.
type WeeklyDigestJob struct {
	orch      *orchestrator.Orchestrator
	briefings store.BriefingQueueStore
	router    *router.Router
	seen      store.DedupStore
}

// NewWeeklyDigestJob constructs a WeeklyDigestJob.
func NewWeeklyDigestJob(orch *orchestrator.Orchestrator, briefings store.BriefingQueueStore, r *router.Router, seen store.DedupStore) *WeeklyDigestJob {
	return &WeeklyDigestJob{orch: orch, briefings: briefings, router: r, seen: seen}
}

func (j *WeeklyDigestJob) Name() string { return "weekly_digest" }

// Cadence runs hourly; RunForUser itself decides, per user-local time,
// whether this is the Monday-07:00 window — cron's own clock is
// server-local and cannot express "Monday 07:00 in every user's own
// timezone" in one expression.
func (j *WeeklyDigestJob) Cadence() string { return "@hourly" }

// InBusinessHoursOnly is false: the digest has its own Monday/07:00 gate
// rather than the generic business-hours window.
func (j *WeeklyDigestJob) InBusinessHoursOnly() bool { return false }

func (j *WeeklyDigestJob) RunForUser(ctx context.Context, user core.User, userNow time.Time) (int, error) {
	if userNow.Weekday() != time.Monday || userNow.Hour() != 7 {
		return 0, nil
	}

	weekStart := startOfWeek(userNow)
	key := "digest:" + user.ID + ":" + weekStart.Format("2006-01-02")
	seen, err := j.seen.SeenRecently(ctx, key, userNow, idempotencyWindow)
	if err != nil {
		return 0, fmt.Errorf("weekly_digest: idempotency check: %w", err)
	}
	if seen {
		return 0, nil
	}

	rows, err := j.briefings.DrainBriefings(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("weekly_digest: drain briefing queue: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var notes strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&notes, "- [%s] %s: %s\n", row.Category, row.Title, row.Message)
	}

	goal := core.Goal{ID: uuid.New().String(), UserID: user.ID, Description: "weekly digest", CreatedAt: userNow}
	result := j.orch.SpawnAndExecute(ctx, orchestrator.Request{
		Agent: agents.ScribeName,
		Goal:  goal,
		Input: agents.ScribeInput{Kind: "weekly_digest_section", RawNotes: notes.String(), Recipient: user.ID},
	})
	if !result.Success {
		return 0, fmt.Errorf("weekly_digest: scribe run failed: %w", result.Err)
	}
	out, ok := result.Data.(agents.ScribeOutput)
	if !ok {
		return 0, fmt.Errorf("weekly_digest: unexpected scribe output type %T", result.Data)
	}

	env := core.InsightEnvelope{
		UserID: user.ID,
		// Medium, not low: the digest is the consumption of the briefing
		// queue, not a new item for it, so it is delivered as a
		// notification (per the weekly_digest -> WEEKLY_DIGEST_READY
		// mapping) rather than re-enqueued into the same queue it just
		// drained.
		Priority: core.PriorityMedium,
		Category: core.CategoryDigest,
		Title:    "Your weekly digest",
		Message:  out.Summary,
		Payload:  map[string]any{"week_start": weekStart.Format("2006-01-02"), "item_count": len(rows)},
	}
	if _, err := j.router.Route(ctx, env); err != nil {
		return 0, fmt.Errorf("weekly_digest: route: %w", err)
	}
	return 1, nil
}

func startOfWeek(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, -offset)
}
