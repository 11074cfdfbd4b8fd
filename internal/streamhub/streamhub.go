// Package streamhub is the process-wide registry mapping a user to the set
// of live streams (WebSocket connections) currently open for them. The
// Proactive Router consults it to decide between pushing over the live
// stream and falling back to a queued channel.
package streamhub

import (
	"errors"
	"sync"
)

// Message is a typed payload the hub delivers to a user's open streams.
// Concrete transports (internal/transport/ws) translate Message into their
// own wire frame.
type Message struct {
	Type           string
	Content        any
	RichContent    map[string]any
	UICommands     []map[string]any
	Suggestions    []string
	ConversationID string
}

// Stream is anything the hub can push a Message to: one open connection.
type Stream interface {
	Send(Message) error
}

// Hub tracks, per user, the set of open Streams and lets callers push to
// all of them or ask whether a user is currently reachable live.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[Stream]struct{}
}

// New constructs an empty Hub.
func New() *Hub {
	return &Hub{streams: make(map[string]map[Stream]struct{})}
}

// Connect registers s as an open stream for userID.
func (h *Hub) Connect(userID string, s Stream) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.streams[userID]
	if !ok {
		set = make(map[Stream]struct{})
		h.streams[userID] = set
	}
	set[s] = struct{}{}
}

// Disconnect unregisters s for userID. If s was the user's last open
// stream, the user is removed from the registry entirely and IsConnected
// reports false afterward.
func (h *Hub) Disconnect(userID string, s Stream) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.streams[userID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.streams, userID)
	}
}

// IsConnected reports whether userID currently has at least one open
// stream.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID]) > 0
}

// SendToUser broadcasts msg to every open stream for userID. If the user
// has no open stream the call is a silent no-op. A send error on one
// stream does not stop delivery to the others; all errors are returned
// joined.
func (h *Hub) SendToUser(userID string, msg Message) error {
	h.mu.RLock()
	streams := make([]Stream, 0, len(h.streams[userID]))
	for s := range h.streams[userID] {
		streams = append(streams, s)
	}
	h.mu.RUnlock()

	var errs []error
	for _, s := range streams {
		if err := s.Send(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendStructured is a typed convenience over SendToUser for the
// "aria.message" outbound shape: a chat message plus rich content, UI
// commands, and suggestions.
func (h *Hub) SendStructured(userID, message string, richContent map[string]any, uiCommands []map[string]any, suggestions []string) error {
	return h.SendToUser(userID, Message{
		Type:        "aria.message",
		Content:     message,
		RichContent: richContent,
		UICommands:  uiCommands,
		Suggestions: suggestions,
	})
}
