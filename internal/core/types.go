// Package core holds the shared vocabulary of the agentic execution core:
// the entities every component (gateway, cost governor, orchestrator, job
// runner, router) passes between each other. None of these types own
// persistence or transport; that belongs to the packages that consume them.
package core

import "time"

// User identifies the human on whose behalf work is performed.
type User struct {
	ID       string
	Timezone string
	Email    string
}

// UsageRecord is the per-user-per-day ledger of token consumption the Cost
// Governor maintains.
type UsageRecord struct {
	UserID          string
	Date            string // YYYY-MM-DD in UTC
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	CallCount       int64
	UpdatedAt       time.Time
}

// TotalTokens returns the sum of every token class tracked for the day.
func (u UsageRecord) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens + u.ReasoningTokens
}

// BudgetStatus is derived on every call from a UsageRecord and the
// configured daily budget. It never persists on its own.
type BudgetStatus struct {
	UserID             string
	TokensUsed         int64
	TokensRemaining    int64
	DailyBudget        int64
	UtilizationPercent float64
	CanProceed         bool
	ShouldReduceEffort bool
}

// Effort is the reasoning-depth dial a caller requests for a model call.
// Values are ordered from cheapest to most expensive.
type Effort string

const (
	EffortRoutine  Effort = "routine"
	EffortComplex  Effort = "complex"
	EffortCritical Effort = "critical"
)

// Downgrade returns the next cheaper effort level, or e itself if e is
// already the cheapest. The Cost Governor uses this to implement its
// soft-limit policy; it never upgrades.
func (e Effort) Downgrade() Effort {
	switch e {
	case EffortCritical:
		return EffortComplex
	case EffortComplex:
		return EffortRoutine
	default:
		return EffortRoutine
	}
}

// ThinkingBudgetTokens maps an effort level to the extended-thinking token
// budget the LLM Gateway must request from the model provider.
func (e Effort) ThinkingBudgetTokens() int {
	switch e {
	case EffortCritical:
		return 32768
	case EffortComplex:
		return 16384
	default:
		return 4096
	}
}

// LLMCall captures the inputs to a single LLM Gateway invocation.
type LLMCall struct {
	UserID   string
	GoalID   string
	Prompt   string
	Effort   Effort
	Thinking bool
}

// LLMResponse is what the LLM Gateway hands back to a caller after a
// successful completion.
type LLMResponse struct {
	Text            string
	ThinkingText    string
	InputTokens     int64
	OutputTokens    int64
	ReasoningTokens int64
	StopReason      string
}

// Conversation is a chat session owned by a user, carrying a
// working-memory buffer of messages exchanged with the assistant.
type Conversation struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	EndedAt   *time.Time
}

// Goal is a unit of work a user has asked the assistant to pursue. It is
// the retry-budget and cost-attribution unit for the Cost Governor.
type Goal struct {
	ID          string
	UserID      string
	Description string
	CreatedAt   time.Time
}

// RetryHint accompanies a failed AgentResult, telling a caller whether
// retrying the same request is worth attempting before it spends another
// entry from the goal's retry budget.
type RetryHint struct {
	Retryable bool
	Reason    string
}

// AgentResult is the outcome of a single agent invocation.
type AgentResult struct {
	AgentName       string
	Success         bool
	Data            any
	Err             error
	TokensUsed      int64
	ExecutionTimeMS int64
	RetryHint       *RetryHint
}

// OrchestrationResult aggregates the AgentResults of a parallel or
// sequential fan-out.
type OrchestrationResult struct {
	Results              []AgentResult
	TotalTokens          int64
	TotalExecutionTimeMS int64
	SuccessCount         int
	FailedCount          int
}

// AllSucceeded reports whether every agent in the fan-out succeeded.
func (o OrchestrationResult) AllSucceeded() bool {
	return o.FailedCount == 0
}

// Priority ranks an InsightEnvelope for delivery-channel selection.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// InsightCategory buckets an insight for deduplication and display.
type InsightCategory string

const (
	CategorySignal     InsightCategory = "signal"
	CategoryDebrief    InsightCategory = "debrief"
	CategoryDigest     InsightCategory = "digest"
	CategoryCommitment InsightCategory = "commitment"
	CategoryGeneral    InsightCategory = "general"
)

// InsightEnvelope is a proactive notice the Proactive Router evaluates for
// delivery.
type InsightEnvelope struct {
	UserID   string
	Priority Priority
	Category InsightCategory
	Title    string
	Message  string
	Link     string
	Payload  map[string]any
	Metadata map[string]any
}

// Channel identifies a delivery surface the router can push an insight to.
type Channel string

const (
	ChannelWebSocket     Channel = "websocket"
	ChannelNotification  Channel = "notification"
	ChannelLoginQueue    Channel = "login_queue"
	ChannelBriefingQueue Channel = "briefing_queue"
)

// DeliveryDecision is the router's verdict for one InsightEnvelope: which
// channels it was actually delivered to.
type DeliveryDecision struct {
	Envelope  InsightEnvelope
	Channels  []Channel
	Deduped   bool
	DecidedAt time.Time
}

// NotificationRecord is a persisted row backing the "notification" channel.
// Type is the deterministic mapping of Category to a display type (e.g.
// "SIGNAL_DETECTED"); the Proactive Router computes it, not the store.
type NotificationRecord struct {
	ID        string
	UserID    string
	Category  InsightCategory
	Type      string
	Title     string
	Message   string
	Link      string
	CreatedAt time.Time
	ReadAt    *time.Time
}

// BriefingQueueRow is a persisted row backing the "briefing_queue" channel,
// consumed by the next digest job run for the user.
type BriefingQueueRow struct {
	ID         string
	UserID     string
	Category   InsightCategory
	Title      string
	Message    string
	Payload    map[string]any
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// LoginQueueRow is a persisted row backing the "login_queue" channel,
// replayed to the user the next time they come online.
type LoginQueueRow struct {
	ID          string
	UserID      string
	Category    InsightCategory
	Title       string
	Message     string
	Link        string
	CreatedAt   time.Time
	DeliveredAt *time.Time
}

// JobRunSummary counts what a single Background Job Runner pass did across
// the population of users it iterated.
type JobRunSummary struct {
	JobName         string
	StartedAt       time.Time
	FinishedAt      time.Time
	UsersConsidered int
	UsersProcessed  int
	UsersSkipped    int
	UsersFailed     int
	Errors          []error
}

// WorkflowState is the persisted snapshot of a Workflow paused at an
// approval gate, so a process restart does not lose an
// awaiting-approval workflow. NextStep is the index of the Step the
// workflow resumes at once approval is granted.
type WorkflowState struct {
	ID           string
	WorkflowName string
	Goal         Goal
	NextStep     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
