// Package store defines the persistence interfaces the Cost Governor,
// Agent Orchestrator, and Proactive Router use to make their state durable.
// Concrete implementations live in store/mongo (production) and
// store/inmem (tests and local development), the same split goa-ai uses
// for its session.Store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
)

var (
	// ErrNotFound is returned when a lookup finds no matching row.
	ErrNotFound = errors.New("store: not found")
)

type (
	// UsageStore persists per-user-per-day token usage for the Cost
	// Governor.
	UsageStore interface {
		// IncrementUsage adds the given token counts to the user's record
		// for date and returns the updated record. It creates the record
		// on first use for that (user, date) pair. Implementations must
		// make this atomic: concurrent calls for the same key must not
		// lose increments.
		IncrementUsage(ctx context.Context, userID string, date string, inputTokens, outputTokens, reasoningTokens int64) (core.UsageRecord, error)
		// LoadUsage loads the usage record for a user and date. Returns
		// ErrNotFound when no calls have been recorded yet.
		LoadUsage(ctx context.Context, userID string, date string) (core.UsageRecord, error)
	}

	// RetryBudgetStore tracks how many retries a goal has consumed against
	// its per-goal retry budget.
	RetryBudgetStore interface {
		// GetRetry returns the retry count currently consumed by goalID
		// without mutating it. A goal with no recorded retries returns 0.
		GetRetry(ctx context.Context, goalID string) (int, error)
		// IncrementRetry increments and returns the retry count consumed
		// by goalID. Implementations must make this atomic.
		IncrementRetry(ctx context.Context, goalID string) (int, error)
		// ResetRetry clears the retry count for goalID, e.g. after a
		// successful completion.
		ResetRetry(ctx context.Context, goalID string) error
	}

	// NotificationStore persists delivered push/in-app notifications.
	NotificationStore interface {
		SaveNotification(ctx context.Context, rec core.NotificationRecord) error
		ListNotifications(ctx context.Context, userID string, since time.Time) ([]core.NotificationRecord, error)
	}

	// BriefingQueueStore persists insights queued for a user's next
	// scheduled digest rather than pushed immediately.
	BriefingQueueStore interface {
		EnqueueBriefing(ctx context.Context, row core.BriefingQueueRow) error
		// DrainBriefings returns every not-yet-consumed row for userID, in
		// FIFO order, for inclusion in the next digest, and marks each one
		// consumed so a later call does not replay it.
		DrainBriefings(ctx context.Context, userID string) ([]core.BriefingQueueRow, error)
	}

	// LoginQueueStore persists insights queued for delivery the next time
	// the user logs in, for users who are not currently connected to any
	// delivery channel.
	LoginQueueStore interface {
		EnqueueLogin(ctx context.Context, row core.LoginQueueRow) error
		// DrainLogin returns every not-yet-delivered row for userID and
		// marks each one delivered so a later call does not replay it.
		DrainLogin(ctx context.Context, userID string) ([]core.LoginQueueRow, error)
	}

	// DedupStore records which (user, category, title) insights have
	// recently been delivered, so the Proactive Router can suppress
	// duplicates within its dedup window.
	DedupStore interface {
		// SeenRecently reports whether an insight with the given key was
		// recorded within window of now, and records the current
		// delivery if not.
		SeenRecently(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error)
	}

	// ConversationStore persists Conversation lifecycle state, the ARIA
	// analogue of goa-ai's session.Store.
	ConversationStore interface {
		CreateConversation(ctx context.Context, conversationID, userID string, createdAt time.Time) (core.Conversation, error)
		LoadConversation(ctx context.Context, conversationID string) (core.Conversation, error)
		EndConversation(ctx context.Context, conversationID string, endedAt time.Time) (core.Conversation, error)
	}

	// JobRunStore persists Background Job Runner execution summaries for
	// observability and idempotency checks (has job X already run for
	// this period?).
	JobRunStore interface {
		SaveJobRun(ctx context.Context, summary core.JobRunSummary) error
		// LastRun returns the most recent summary for jobName, or
		// ErrNotFound if the job has never run.
		LastRun(ctx context.Context, jobName string) (core.JobRunSummary, error)
	}

	// WorkflowStore persists a Workflow's paused-at-approval state so it
	// survives a process restart between the approval gate opening and
	// the approval decision arriving.
	WorkflowStore interface {
		SavePendingWorkflow(ctx context.Context, state core.WorkflowState) error
		LoadPendingWorkflow(ctx context.Context, id string) (core.WorkflowState, error)
		// DeletePendingWorkflow removes the pending state once the
		// workflow resumes or is abandoned. Deleting an id that does not
		// exist is not an error.
		DeletePendingWorkflow(ctx context.Context, id string) error
	}
)
