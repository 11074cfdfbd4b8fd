// Package redishub extends streamhub.Hub with cross-process presence and
// delivery over Redis, so that a user connected to a different ARIA
// server process than the one handling a background job still receives
// live-stream pushes. Grounded on the registry package's Redis-backed
// cross-node mapping idiom (registry/result_stream.go): a local in-memory
// structure for the fast path, with Redis as the lookup/fanout layer
// nodes use to reach each other.
package redishub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"goa.design/clue/health"

	"github.com/aria-platform/aria-core/internal/streamhub"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

const (
	presenceTTL    = 45 * time.Second
	presencePrefix = "aria:presence:"
	channelPrefix  = "aria:stream:"
)

// Hub wraps a local streamhub.Hub with Redis-backed presence and
// cross-process delivery. All delivery, including to streams open on the
// same process that originated a send, goes through the Redis channel;
// Connect/Disconnect own starting and stopping the per-user relay so a
// message is never delivered to a process's own local streams twice.
type Hub struct {
	local  *streamhub.Hub
	rdb    *redis.Client
	logger telemetry.Logger

	mu   sync.Mutex
	subs map[string]context.CancelFunc
}

// New constructs a Hub. local is the process's own connection registry;
// rdb is used to publish presence and fan out sends to other processes.
func New(local *streamhub.Hub, rdb *redis.Client, logger telemetry.Logger) *Hub {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Hub{local: local, rdb: rdb, logger: logger, subs: make(map[string]context.CancelFunc)}
}

func presenceKey(userID string) string { return presencePrefix + userID }
func channelName(userID string) string { return channelPrefix + userID }

// Connect registers s locally, refreshes the user's cross-process
// presence key, and ensures a relay subscription is running for userID.
// Callers should call Refresh periodically (e.g. on a transport
// heartbeat) to keep the presence key from expiring while the connection
// is open.
func (h *Hub) Connect(ctx context.Context, userID string, s streamhub.Stream) error {
	h.local.Connect(userID, s)
	h.ensureSubscribed(userID)
	return h.Refresh(ctx, userID)
}

// Disconnect unregisters s locally. If the user has no more local
// streams, their presence key is cleared and the relay subscription for
// them is stopped.
func (h *Hub) Disconnect(ctx context.Context, userID string, s streamhub.Stream) {
	h.local.Disconnect(userID, s)
	if h.local.IsConnected(userID) {
		return
	}
	if err := h.rdb.Del(ctx, presenceKey(userID)).Err(); err != nil {
		h.logger.Warn(ctx, "redishub: clear presence failed", "user_id", userID, "error", err)
	}
	h.mu.Lock()
	if cancel, ok := h.subs[userID]; ok {
		cancel()
		delete(h.subs, userID)
	}
	h.mu.Unlock()
}

// Refresh renews the user's presence TTL. Call this on a heartbeat so a
// process crash (rather than a clean disconnect) still expires the key
// within presenceTTL.
func (h *Hub) Refresh(ctx context.Context, userID string) error {
	return h.rdb.Set(ctx, presenceKey(userID), "1", presenceTTL).Err()
}

// IsConnected reports whether userID has an open stream anywhere in the
// cluster, not just on this process.
func (h *Hub) IsConnected(ctx context.Context, userID string) (bool, error) {
	if h.local.IsConnected(userID) {
		return true, nil
	}
	n, err := h.rdb.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("redishub: check presence: %w", err)
	}
	return n > 0, nil
}

// SendToUser publishes msg on the user's Redis channel. Whichever
// process (this one included) holds userID's relay subscription
// delivers it to the local streams it owns.
func (h *Hub) SendToUser(ctx context.Context, userID string, msg streamhub.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("redishub: marshal message: %w", err)
	}
	if err := h.rdb.Publish(ctx, channelName(userID), payload).Err(); err != nil {
		return fmt.Errorf("redishub: publish: %w", err)
	}
	return nil
}

// Name implements health.Pinger.
func (h *Hub) Name() string { return "redishub" }

// Ping implements health.Pinger.
func (h *Hub) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

var _ health.Pinger = (*Hub)(nil)

// ensureSubscribed starts a relay goroutine for userID if one is not
// already running on this process.
func (h *Hub) ensureSubscribed(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[userID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.subs[userID] = cancel
	go h.relay(ctx, userID)
}

// relay delivers messages published for userID into this process's local
// streams until ctx is cancelled.
func (h *Hub) relay(ctx context.Context, userID string) {
	sub := h.rdb.Subscribe(ctx, channelName(userID))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg streamhub.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				h.logger.Warn(ctx, "redishub: malformed message on channel", "user_id", userID, "error", err)
				continue
			}
			if !h.local.IsConnected(userID) {
				continue
			}
			if err := h.local.SendToUser(userID, msg); err != nil {
				h.logger.Warn(ctx, "redishub: relay send failed", "user_id", userID, "error", err)
			}
		}
	}
}
