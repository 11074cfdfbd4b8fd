// Package inmem provides an in-memory implementation of the store
// interfaces. It is intended for tests and local development; production
// deployments use store/mongo.
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store"
)

// Store implements every store interface against in-process maps. It is
// safe for concurrent use.
type Store struct {
	mu sync.Mutex

	usage         map[string]core.UsageRecord
	retries       map[string]int
	notifications map[string][]core.NotificationRecord
	briefings     map[string][]core.BriefingQueueRow
	loginQueue    map[string][]core.LoginQueueRow
	dedup         map[string]time.Time
	conversations map[string]core.Conversation
	jobRuns       map[string]core.JobRunSummary
	workflows     map[string]core.WorkflowState
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		usage:         make(map[string]core.UsageRecord),
		retries:       make(map[string]int),
		notifications: make(map[string][]core.NotificationRecord),
		briefings:     make(map[string][]core.BriefingQueueRow),
		loginQueue:    make(map[string][]core.LoginQueueRow),
		dedup:         make(map[string]time.Time),
		conversations: make(map[string]core.Conversation),
		jobRuns:       make(map[string]core.JobRunSummary),
		workflows:     make(map[string]core.WorkflowState),
	}
}

func usageKey(userID, date string) string { return userID + "|" + date }

func (s *Store) IncrementUsage(_ context.Context, userID, date string, inputTokens, outputTokens, reasoningTokens int64) (core.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usageKey(userID, date)
	rec, ok := s.usage[key]
	if !ok {
		rec = core.UsageRecord{UserID: userID, Date: date}
	}
	rec.InputTokens += inputTokens
	rec.OutputTokens += outputTokens
	rec.ReasoningTokens += reasoningTokens
	rec.CallCount++
	rec.UpdatedAt = time.Now().UTC()
	s.usage[key] = rec
	return rec, nil
}

func (s *Store) LoadUsage(_ context.Context, userID, date string) (core.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.usage[usageKey(userID, date)]
	if !ok {
		return core.UsageRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) GetRetry(_ context.Context, goalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries[goalID], nil
}

func (s *Store) IncrementRetry(_ context.Context, goalID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries[goalID]++
	return s.retries[goalID], nil
}

func (s *Store) ResetRetry(_ context.Context, goalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retries, goalID)
	return nil
}

func (s *Store) SaveNotification(_ context.Context, rec core.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[rec.UserID] = append(s.notifications[rec.UserID], rec)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, since time.Time) ([]core.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.NotificationRecord
	for _, rec := range s.notifications[userID] {
		if rec.CreatedAt.After(since) || rec.CreatedAt.Equal(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) EnqueueBriefing(_ context.Context, row core.BriefingQueueRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.briefings[row.UserID] = append(s.briefings[row.UserID], row)
	return nil
}

func (s *Store) DrainBriefings(_ context.Context, userID string) ([]core.BriefingQueueRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var drained []core.BriefingQueueRow
	rows := s.briefings[userID]
	for i, row := range rows {
		if row.ConsumedAt != nil {
			continue
		}
		rows[i].ConsumedAt = &now
		drained = append(drained, rows[i])
	}
	s.briefings[userID] = rows
	return drained, nil
}

func (s *Store) EnqueueLogin(_ context.Context, row core.LoginQueueRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginQueue[row.UserID] = append(s.loginQueue[row.UserID], row)
	return nil
}

func (s *Store) DrainLogin(_ context.Context, userID string) ([]core.LoginQueueRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var drained []core.LoginQueueRow
	rows := s.loginQueue[userID]
	for i, row := range rows {
		if row.DeliveredAt != nil {
			continue
		}
		rows[i].DeliveredAt = &now
		drained = append(drained, rows[i])
	}
	s.loginQueue[userID] = rows
	return drained, nil
}

func (s *Store) SeenRecently(_ context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.dedup[key]
	seen := ok && now.Sub(last) < window
	if !seen {
		s.dedup[key] = now
	}
	return seen, nil
}

func (s *Store) CreateConversation(_ context.Context, conversationID, userID string, createdAt time.Time) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.conversations[conversationID]; ok {
		return existing, nil
	}
	conv := core.Conversation{ID: conversationID, UserID: userID, CreatedAt: createdAt.UTC()}
	s.conversations[conversationID] = conv
	return conv, nil
}

func (s *Store) LoadConversation(_ context.Context, conversationID string) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return core.Conversation{}, store.ErrNotFound
	}
	return conv, nil
}

func (s *Store) EndConversation(_ context.Context, conversationID string, endedAt time.Time) (core.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return core.Conversation{}, store.ErrNotFound
	}
	if conv.EndedAt == nil {
		at := endedAt.UTC()
		conv.EndedAt = &at
		s.conversations[conversationID] = conv
	}
	return conv, nil
}

func (s *Store) SaveJobRun(_ context.Context, summary core.JobRunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobRuns[summary.JobName] = summary
	return nil
}

func (s *Store) LastRun(_ context.Context, jobName string) (core.JobRunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.jobRuns[jobName]
	if !ok {
		return core.JobRunSummary{}, store.ErrNotFound
	}
	return summary, nil
}

func (s *Store) SavePendingWorkflow(_ context.Context, state core.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[state.ID] = state
	return nil
}

func (s *Store) LoadPendingWorkflow(_ context.Context, id string) (core.WorkflowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.workflows[id]
	if !ok {
		return core.WorkflowState{}, store.ErrNotFound
	}
	return state, nil
}

func (s *Store) DeletePendingWorkflow(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.workflows, id)
	return nil
}
