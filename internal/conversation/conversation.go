// Package conversation manages Conversation lifecycle and turn ordering,
// the ARIA analogue of goa-ai's session package: explicit create/end,
// idempotent create, and terminal-state enforcement once a conversation
// has ended. Unlike goa-ai's Session, which tracks run metadata for a
// durable workflow engine, a Conversation here only needs to serialize
// concurrent turns and gate the login-queue replay on handshake.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store"
)

// ErrEnded is returned when a caller tries to start a turn on a
// conversation that has already ended.
var ErrEnded = errors.New("conversation: already ended")

// Service owns conversation lifecycle and per-conversation turn
// serialization.
type Service struct {
	store  store.ConversationStore
	logins store.LoginQueueStore

	mu    sync.Mutex
	turns map[string]*sync.Mutex
}

// New constructs a Service.
func New(convStore store.ConversationStore, logins store.LoginQueueStore) *Service {
	return &Service{store: convStore, logins: logins, turns: make(map[string]*sync.Mutex)}
}

// Start creates conversationID for userID if it does not already exist,
// returning the existing record idempotently on a repeat call.
func (s *Service) Start(ctx context.Context, conversationID, userID string, now time.Time) (core.Conversation, error) {
	return s.store.CreateConversation(ctx, conversationID, userID, now)
}

// End marks conversationID ended. Idempotent: ending an already-ended
// conversation returns the stored record unchanged.
func (s *Service) End(ctx context.Context, conversationID string, now time.Time) (core.Conversation, error) {
	return s.store.EndConversation(ctx, conversationID, now)
}

// Turn runs fn under a per-conversation lock, so concurrent calls for
// the same conversation are processed strictly in arrival order, and
// refuses to run fn at all if the conversation has already ended.
func (s *Service) Turn(ctx context.Context, conversationID string, fn func(ctx context.Context) error) error {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.LoadConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.EndedAt != nil {
		return ErrEnded
	}
	return fn(ctx)
}

func (s *Service) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.turns[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.turns[conversationID] = lock
	}
	return lock
}

// ReplayHandshake drains and returns every undelivered LoginQueueRow for
// userID, for the caller to replay into a fresh chat session before
// accepting new user input. Drain itself marks each returned row
// delivered in place, so a later drain does not return it again.
func (s *Service) ReplayHandshake(ctx context.Context, userID string) ([]core.LoginQueueRow, error) {
	return s.logins.DrainLogin(ctx, userID)
}
