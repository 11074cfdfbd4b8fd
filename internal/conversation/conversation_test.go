package conversation

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

func TestStartIsIdempotent(t *testing.T) {
	st := inmem.New()
	svc := New(st, st)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := svc.Start(ctx, "conv-1", "user-1", now)
	require.NoError(t, err)
	second, err := svc.Start(ctx, "conv-1", "user-9", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, first, second, "second Start should return the existing record unchanged")
	require.Equal(t, "user-1", second.UserID)
}

func TestTurnRefusesAfterEnd(t *testing.T) {
	st := inmem.New()
	svc := New(st, st)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := svc.Start(ctx, "conv-1", "user-1", now)
	require.NoError(t, err)
	_, err = svc.End(ctx, "conv-1", now.Add(time.Minute))
	require.NoError(t, err)

	err = svc.Turn(ctx, "conv-1", func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrEnded)
}

func TestTurnSerializesConcurrentCalls(t *testing.T) {
	st := inmem.New()
	svc := New(st, st)
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := svc.Start(ctx, "conv-1", "user-1", now)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		running int32
		overlap int32
	)
	run := func() {
		defer wg.Done()
		err := svc.Turn(ctx, "conv-1", func(context.Context) error {
			if atomic.AddInt32(&running, 1) > 1 {
				atomic.AddInt32(&overlap, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
		require.NoError(t, err)
	}
	wg.Add(5)
	for i := 0; i < 5; i++ {
		go run()
	}
	wg.Wait()
	require.Zero(t, overlap, "expected Turn to serialize concurrent calls for the same conversation")
}

func TestReplayHandshakeDrainsLoginQueue(t *testing.T) {
	st := inmem.New()
	svc := New(st, st)
	ctx := context.Background()
	require.NoError(t, st.EnqueueLogin(ctx, core.LoginQueueRow{UserID: "user-1", Title: "t1"}))
	require.NoError(t, st.EnqueueLogin(ctx, core.LoginQueueRow{UserID: "user-1", Title: "t2"}))

	rows, err := svc.ReplayHandshake(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	again, err := svc.ReplayHandshake(ctx, "user-1")
	require.NoError(t, err)
	require.Empty(t, again, "ReplayHandshake should drain the queue, not merely read it")
}
