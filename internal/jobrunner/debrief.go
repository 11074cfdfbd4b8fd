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

// Meeting is a completed meeting eligible for a debrief prompt.
type Meeting struct {
	ID        string
	Title     string
	Notes     string
	Attendees []string
}

// MeetingSource supplies completed-but-undebriefed meetings for a user.
type MeetingSource interface {
	RecentMeetings(ctx context.Context, userID string) ([]Meeting, error)
}

// DebriefJob prompts the user to debrief recently completed meetings,
// turning raw meeting notes into a structured write-up via the Scribe
// agent.
type DebriefJob struct {
	orch     *orchestrator.Orchestrator
	meetings MeetingSource
	router   *router.Router
	seen     store.DedupStore
}

// NewDebriefJob constructs a DebriefJob.
func NewDebriefJob(orch *orchestrator.Orchestrator, meetings MeetingSource, r *router.Router, seen store.DedupStore) *DebriefJob {
	return &DebriefJob{orch: orch, meetings: meetings, router: r, seen: seen}
}

func (j *DebriefJob) Name() string              { return "meeting_debrief" }
func (j *DebriefJob) Cadence() string           { return "@every 15m" }
func (j *DebriefJob) InBusinessHoursOnly() bool { return true }

func (j *DebriefJob) RunForUser(ctx context.Context, user core.User, now time.Time) (int, error) {
	meetings, err := j.meetings.RecentMeetings(ctx, user.ID)
	if err != nil {
		return 0, fmt.Errorf("meeting_debrief: load recent meetings: %w", err)
	}
	if len(meetings) == 0 {
		return 0, nil
	}

	produced := 0
	for _, m := range meetings {
		key := "debrief:" + user.ID + ":" + m.ID
		seen, err := j.seen.SeenRecently(ctx, key, now, idempotencyWindow)
		if err != nil {
			return produced, fmt.Errorf("meeting_debrief: idempotency check: %w", err)
		}
		if seen {
			continue
		}

		goal := core.Goal{ID: uuid.New().String(), UserID: user.ID, Description: "meeting debrief: " + m.Title, CreatedAt: now}
		result := j.orch.SpawnAndExecute(ctx, orchestrator.Request{
			Agent: agents.ScribeName,
			Goal:  goal,
			Input: agents.ScribeInput{Kind: "call_debrief", RawNotes: m.Notes, Recipient: user.ID},
		})
		if !result.Success {
			return produced, fmt.Errorf("meeting_debrief: scribe run failed: %w", result.Err)
		}
		out, ok := result.Data.(agents.ScribeOutput)
		if !ok {
			return produced, fmt.Errorf("meeting_debrief: unexpected scribe output type %T", result.Data)
		}

		env := core.InsightEnvelope{
			UserID:   user.ID,
			Priority: core.PriorityMedium,
			Category: core.CategoryDebrief,
			Title:    "Debrief ready: " + m.Title,
			Message:  out.Summary,
			Payload:  map[string]any{"meeting_id": m.ID},
		}
		if _, err := j.router.Route(ctx, env); err != nil {
			return produced, fmt.Errorf("meeting_debrief: route: %w", err)
		}
		produced++
	}
	return produced, nil
}
