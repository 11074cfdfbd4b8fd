package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

type fakeConnectivity struct{ connected map[string]bool }

func (f fakeConnectivity) IsConnected(userID string) bool { return f.connected[userID] }

type fakePusher struct {
	sent []string
	err  error
}

func (f *fakePusher) SendStructured(userID, message string, _ map[string]any, _ []map[string]any, _ []string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, userID+":"+message)
	return nil
}

func newTestRouter(st *inmem.Store, conn Connectivity, push Pusher) *Router {
	return New(Config{
		Connectivity:  conn,
		Pusher:        push,
		Dedup:         st,
		Notifications: st,
		Briefings:     st,
		Logins:        st,
		NewID:         func() string { return "id-1" },
		Clock:         func() time.Time { return time.Unix(0, 0).UTC() },
	})
}

func TestRouteHighPriorityConnectedPushesLive(t *testing.T) {
	st := inmem.New()
	push := &fakePusher{}
	r := newTestRouter(st, fakeConnectivity{connected: map[string]bool{"u1": true}}, push)

	decision, err := r.Route(context.Background(), core.InsightEnvelope{
		UserID: "u1", Priority: core.PriorityHigh, Category: core.CategorySignal, Title: "t", Message: "m",
	})
	require.NoError(t, err)
	require.Equal(t, []core.Channel{core.ChannelWebSocket}, decision.Channels)
	require.Len(t, push.sent, 1)
}

func TestRouteHighPriorityDisconnectedQueuesLogin(t *testing.T) {
	st := inmem.New()
	push := &fakePusher{}
	r := newTestRouter(st, fakeConnectivity{}, push)

	decision, err := r.Route(context.Background(), core.InsightEnvelope{
		UserID: "u1", Priority: core.PriorityHigh, Category: core.CategorySignal, Title: "t", Message: "m",
	})
	require.NoError(t, err)
	require.Equal(t, []core.Channel{core.ChannelLoginQueue}, decision.Channels)
	require.Empty(t, push.sent)

	rows, err := st.DrainLogin(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRouteMediumPriorityAlwaysNotifies(t *testing.T) {
	st := inmem.New()
	r := newTestRouter(st, fakeConnectivity{connected: map[string]bool{"u1": true}}, &fakePusher{})

	decision, err := r.Route(context.Background(), core.InsightEnvelope{
		UserID: "u1", Priority: core.PriorityMedium, Category: core.CategoryDebrief, Title: "t", Message: "m",
	})
	require.NoError(t, err)
	require.Equal(t, []core.Channel{core.ChannelNotification}, decision.Channels)

	notifications, err := st.ListNotifications(context.Background(), "u1", time.Unix(0, 0).UTC())
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	require.Equal(t, "DEBRIEF_PROMPT", notifications[0].Type)
}

func TestRouteLowPriorityQueuesBriefing(t *testing.T) {
	st := inmem.New()
	r := newTestRouter(st, fakeConnectivity{}, &fakePusher{})

	decision, err := r.Route(context.Background(), core.InsightEnvelope{
		UserID: "u1", Priority: core.PriorityLow, Category: core.CategoryDigest, Title: "t", Message: "m",
	})
	require.NoError(t, err)
	require.Equal(t, []core.Channel{core.ChannelBriefingQueue}, decision.Channels)

	rows, err := st.DrainBriefings(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestRouteSuppressesDuplicateWithinWindow(t *testing.T) {
	st := inmem.New()
	r := newTestRouter(st, fakeConnectivity{}, &fakePusher{})
	env := core.InsightEnvelope{UserID: "u1", Priority: core.PriorityLow, Category: core.CategoryDigest, Title: "t", Message: "m"}

	first, err := r.Route(context.Background(), env)
	require.NoError(t, err)
	require.False(t, first.Deduped)

	second, err := r.Route(context.Background(), env)
	require.NoError(t, err)
	require.True(t, second.Deduped)
}

func TestNotificationTypeFallsBackToGeneric(t *testing.T) {
	require.Equal(t, "SIGNAL_DETECTED", NotificationType(core.InsightCategory("unmapped")))
	require.Equal(t, "OVERDUE_COMMITMENT", NotificationType(core.CategoryCommitment))
}
