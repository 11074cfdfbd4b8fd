package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/conversation"
	"github.com/aria-platform/aria-core/internal/costgovernor"
	"github.com/aria-platform/aria-core/internal/gateway"
	"github.com/aria-platform/aria-core/internal/llmmodel"
	"github.com/aria-platform/aria-core/internal/store/inmem"
	"github.com/aria-platform/aria-core/internal/streamhub"
)

// fakeStreamer yields its chunks in order then io.EOF, standing in for a
// provider's streaming response without touching a real vendor.
type fakeStreamer struct {
	chunks []llmmodel.Chunk
	i      int
}

func (f *fakeStreamer) Recv() (llmmodel.Chunk, error) {
	if f.i >= len(f.chunks) {
		return llmmodel.Chunk{}, io.EOF
	}
	c := f.chunks[f.i]
	f.i++
	return c, nil
}
func (f *fakeStreamer) Close() error             { return nil }
func (f *fakeStreamer) Metadata() map[string]any { return nil }

type fakeModelClient struct {
	reply string
}

func (f *fakeModelClient) Complete(ctx context.Context, req *llmmodel.Request) (*llmmodel.Response, error) {
	return &llmmodel.Response{
		Content: []llmmodel.Message{{Parts: []llmmodel.Part{llmmodel.TextPart{Text: f.reply}}}},
	}, nil
}

func (f *fakeModelClient) Stream(ctx context.Context, req *llmmodel.Request) (llmmodel.Streamer, error) {
	return &fakeStreamer{chunks: []llmmodel.Chunk{
		{Type: llmmodel.ChunkTypeText, Message: &llmmodel.Message{Parts: []llmmodel.Part{llmmodel.TextPart{Text: f.reply}}}},
		{Type: llmmodel.ChunkTypeStop},
	}}, nil
}

func newTestHandler(t *testing.T) (*Handler, *inmem.Store) {
	t.Helper()
	st := inmem.New()
	cost := costgovernor.New(costgovernor.Config{Enabled: false}, st, st, nil)
	gw := gateway.New(&fakeModelClient{reply: "hello there"}, cost)
	conv := conversation.New(st, st)
	hub := streamhub.New()
	return New(localConnector{hub}, conv, gw, nil, nil, nil), st
}

// localConnector adapts a process-local streamhub.Hub to the Connector
// interface used in production by redishub.Hub.
type localConnector struct{ hub *streamhub.Hub }

func (c localConnector) Connect(_ context.Context, userID string, s streamhub.Stream) error {
	c.hub.Connect(userID, s)
	return nil
}
func (c localConnector) Disconnect(_ context.Context, userID string, s streamhub.Stream) {
	c.hub.Disconnect(userID, s)
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHandshakeSendsConnectedFrame(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeHTTP))
	defer srv.Close()

	conn := dialWS(t, srv, "user_id=u1&token=t1&conversation_id=c1")
	defer conn.Close()

	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "connected", frame["type"])
	payload := frame["payload"].(map[string]any)
	require.Equal(t, "u1", payload["user_id"])
	require.Equal(t, "c1", payload["session_id"])
}

func TestHandshakeMissingTokenClosesWithPolicyViolation(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeHTTP))
	defer srv.Close()

	conn := dialWS(t, srv, "user_id=u1")
	defer conn.Close()

	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected a websocket close error, got %T: %v", err, err)
	require.Equal(t, closePolicyViolation, closeErr.Code)
}

func TestUserMessageStreamsReply(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeHTTP))
	defer srv.Close()

	conn := dialWS(t, srv, "user_id=u1&token=t1&conversation_id=c1")
	defer conn.Close()

	var connected map[string]any
	require.NoError(t, conn.ReadJSON(&connected))
	require.Equal(t, "connected", connected["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "user.message", "message": "hi aria"}))

	var thinking map[string]any
	require.NoError(t, conn.ReadJSON(&thinking))
	require.Equal(t, "aria.thinking", thinking["type"])

	var token map[string]any
	require.NoError(t, conn.ReadJSON(&token))
	require.Equal(t, "aria.token", token["type"])
	tokenPayload := token["payload"].(map[string]any)
	require.Equal(t, "hello there", tokenPayload["content"])

	var complete map[string]any
	require.NoError(t, conn.ReadJSON(&complete))
	require.Equal(t, "aria.stream_complete", complete["type"])

	var message map[string]any
	require.NoError(t, conn.ReadJSON(&message))
	require.Equal(t, "aria.message", message["type"])
	messagePayload := message["payload"].(map[string]any)
	require.Equal(t, "hello there", messagePayload["message"])
}

func TestPingReceivesPong(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(h.ServeHTTP))
	defer srv.Close()

	conn := dialWS(t, srv, "user_id=u1&token=t1&conversation_id=c1")
	defer conn.Close()

	var connected map[string]any
	require.NoError(t, conn.ReadJSON(&connected))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pong map[string]any
	require.NoError(t, conn.ReadJSON(&pong))
	require.Equal(t, "pong", pong["type"])
}
