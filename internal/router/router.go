// Package router implements the Proactive Router: it takes an
// InsightEnvelope produced by an agent or the Background Job Runner and
// decides where it goes — the live stream, a notification record, the
// login queue, or the briefing queue — based on the envelope's priority
// and whether the user is currently connected.
package router

import (
	"context"
	"time"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store"
	"github.com/aria-platform/aria-core/internal/streamhub"
	"github.com/aria-platform/aria-core/internal/streamhub/redishub"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// DedupWindow is how long a (user, category, title) triple suppresses a
// repeat delivery.
const DedupWindow = time.Hour

// notificationType maps an InsightEnvelope.Category to the type string
// stamped on the resulting NotificationRecord. An unmapped category
// falls back to genericNotificationType.
var notificationType = map[core.InsightCategory]string{
	core.CategorySignal:     "SIGNAL_DETECTED",
	core.CategoryDebrief:    "DEBRIEF_PROMPT",
	core.CategoryDigest:     "WEEKLY_DIGEST_READY",
	core.CategoryCommitment: "OVERDUE_COMMITMENT",
}

const genericNotificationType = "SIGNAL_DETECTED"

// IDGenerator produces a unique ID for a new persisted row. cmd/ariad
// wires google/uuid; tests can supply a deterministic stub.
type IDGenerator func() string

// Connectivity reports whether a user currently has an open live stream,
// satisfied by streamhub.Hub directly; ClusterConnectivity adapts a
// redishub.Hub for clustered deployments.
type Connectivity interface {
	IsConnected(userID string) bool
}

// localConnectivity adapts *streamhub.Hub (whose IsConnected takes no
// context) to the Connectivity interface.
type localConnectivity struct{ hub *streamhub.Hub }

func (c localConnectivity) IsConnected(userID string) bool { return c.hub.IsConnected(userID) }

// LocalConnectivity wraps a process-local streamhub.Hub as a
// Connectivity.
func LocalConnectivity(hub *streamhub.Hub) Connectivity { return localConnectivity{hub: hub} }

// clusterConnectivity adapts *redishub.Hub's context-and-error-returning
// IsConnected to the Connectivity interface. A Redis error is treated as
// "not connected" so a transient Redis outage degrades routing toward
// the queued channels rather than failing Route outright.
type clusterConnectivity struct{ hub *redishub.Hub }

func (c clusterConnectivity) IsConnected(userID string) bool {
	ok, err := c.hub.IsConnected(context.Background(), userID)
	return err == nil && ok
}

// ClusterConnectivity wraps a redishub.Hub as a Connectivity for
// deployments where the live-stream transport is shared across multiple
// ARIA server processes.
func ClusterConnectivity(hub *redishub.Hub) Connectivity { return clusterConnectivity{hub: hub} }

// clusterPusher adapts a redishub.Hub to the Pusher interface.
type clusterPusher struct{ hub *redishub.Hub }

func (p clusterPusher) SendStructured(userID, message string, richContent map[string]any, uiCommands []map[string]any, suggestions []string) error {
	return p.hub.SendToUser(context.Background(), userID, streamhub.Message{
		Type:        "aria.message",
		Content:     message,
		RichContent: richContent,
		UICommands:  uiCommands,
		Suggestions: suggestions,
	})
}

// ClusterPusher wraps a redishub.Hub as a Pusher for clustered
// deployments.
func ClusterPusher(hub *redishub.Hub) Pusher { return clusterPusher{hub: hub} }

// Pusher delivers a structured message over the live stream for a
// connected user. *streamhub.Hub satisfies this directly.
type Pusher interface {
	SendStructured(userID, message string, richContent map[string]any, uiCommands []map[string]any, suggestions []string) error
}

// Router turns InsightEnvelopes into delivery actions.
type Router struct {
	conn          Connectivity
	push          Pusher
	dedup         store.DedupStore
	notifications store.NotificationStore
	briefings     store.BriefingQueueStore
	logins        store.LoginQueueStore
	newID         IDGenerator
	clock         func() time.Time
	metrics       telemetry.Metrics
}

// Config wires a Router's dependencies.
type Config struct {
	Connectivity  Connectivity
	Pusher        Pusher
	Dedup         store.DedupStore
	Notifications store.NotificationStore
	Briefings     store.BriefingQueueStore
	Logins        store.LoginQueueStore
	NewID         IDGenerator
	Clock         func() time.Time
	Metrics       telemetry.Metrics
}

// New constructs a Router.
func New(cfg Config) *Router {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics{}
	}
	return &Router{
		conn:          cfg.Connectivity,
		push:          cfg.Pusher,
		dedup:         cfg.Dedup,
		notifications: cfg.Notifications,
		briefings:     cfg.Briefings,
		logins:        cfg.Logins,
		newID:         cfg.NewID,
		clock:         cfg.Clock,
		metrics:       cfg.Metrics,
	}
}

// Route decides how to deliver env and carries out that decision,
// returning the resulting DeliveryDecision.
func (r *Router) Route(ctx context.Context, env core.InsightEnvelope) (core.DeliveryDecision, error) {
	now := r.clock()
	key := dedupKey(env)
	seen, err := r.dedup.SeenRecently(ctx, key, now, DedupWindow)
	if err != nil {
		return core.DeliveryDecision{}, err
	}
	if seen {
		r.metrics.IncCounter("router.suppressed_duplicate", 1, "category", string(env.Category))
		return core.DeliveryDecision{Envelope: env, Deduped: true, DecidedAt: now}, nil
	}

	connected := r.conn != nil && r.conn.IsConnected(env.UserID)
	var channels []core.Channel
	var err2 error
	switch env.Priority {
	case core.PriorityHigh:
		channels, err2 = r.routeHigh(ctx, env, now, connected)
	case core.PriorityMedium:
		channels, err2 = r.routeMedium(ctx, env, now, connected)
	default:
		channels, err2 = r.routeLow(ctx, env, now)
	}
	if err2 != nil {
		return core.DeliveryDecision{}, err2
	}

	r.metrics.IncCounter("router.routed", 1, "priority", string(env.Priority))
	return core.DeliveryDecision{Envelope: env, Channels: channels, DecidedAt: now}, nil
}

func (r *Router) routeHigh(ctx context.Context, env core.InsightEnvelope, now time.Time, connected bool) ([]core.Channel, error) {
	if connected {
		if err := r.push.SendStructured(env.UserID, env.Message, env.Payload, nil, nil); err != nil {
			return nil, err
		}
		return []core.Channel{core.ChannelWebSocket}, nil
	}
	if err := r.saveNotification(ctx, env, now); err != nil {
		return nil, err
	}
	if err := r.logins.EnqueueLogin(ctx, core.LoginQueueRow{
		ID: r.id(), UserID: env.UserID, Category: env.Category,
		Title: env.Title, Message: env.Message, Link: env.Link, CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return []core.Channel{core.ChannelLoginQueue}, nil
}

func (r *Router) routeMedium(ctx context.Context, env core.InsightEnvelope, now time.Time, connected bool) ([]core.Channel, error) {
	if err := r.saveNotification(ctx, env, now); err != nil {
		return nil, err
	}
	if connected {
		_ = r.push.SendStructured(env.UserID, env.Title, nil, nil, nil)
	}
	return []core.Channel{core.ChannelNotification}, nil
}

func (r *Router) routeLow(ctx context.Context, env core.InsightEnvelope, now time.Time) ([]core.Channel, error) {
	if err := r.briefings.EnqueueBriefing(ctx, core.BriefingQueueRow{
		ID: r.id(), UserID: env.UserID, Category: env.Category,
		Title: env.Title, Message: env.Message, Payload: env.Payload, CreatedAt: now,
	}); err != nil {
		return nil, err
	}
	return []core.Channel{core.ChannelBriefingQueue}, nil
}

func (r *Router) saveNotification(ctx context.Context, env core.InsightEnvelope, now time.Time) error {
	return r.notifications.SaveNotification(ctx, core.NotificationRecord{
		ID: r.id(), UserID: env.UserID, Category: env.Category, Type: NotificationType(env.Category),
		Title: env.Title, Message: env.Message, Link: env.Link, CreatedAt: now,
	})
}

func (r *Router) id() string {
	if r.newID == nil {
		return ""
	}
	return r.newID()
}

// NotificationType returns the NotificationRecord type string for an
// InsightCategory, defaulting to the generic "signal detected" type for
// categories with no specific mapping.
func NotificationType(category core.InsightCategory) string {
	if t, ok := notificationType[category]; ok {
		return t
	}
	return genericNotificationType
}

func dedupKey(env core.InsightEnvelope) string {
	return string(env.UserID) + "|" + string(env.Category) + "|" + env.Title
}
