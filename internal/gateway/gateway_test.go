package gateway

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/circuitbreaker"
	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/coreerrors"
	"github.com/aria-platform/aria-core/internal/costgovernor"
	"github.com/aria-platform/aria-core/internal/llmmodel"
	"github.com/aria-platform/aria-core/internal/retry"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

type scriptedClient struct {
	errs    []error
	calls   int
	reply   string
	streamC []llmmodel.Chunk
	strmErr error
}

func (c *scriptedClient) Complete(ctx context.Context, req *llmmodel.Request) (*llmmodel.Response, error) {
	var err error
	if c.calls < len(c.errs) {
		err = c.errs[c.calls]
	}
	c.calls++
	if err != nil {
		return nil, err
	}
	return &llmmodel.Response{
		Content: []llmmodel.Message{{Parts: []llmmodel.Part{llmmodel.TextPart{Text: c.reply}}}},
		Usage:   llmmodel.TokenUsage{InputTokens: 5, OutputTokens: 7},
	}, nil
}

func (c *scriptedClient) Stream(ctx context.Context, req *llmmodel.Request) (llmmodel.Streamer, error) {
	if c.strmErr != nil {
		return nil, c.strmErr
	}
	return &scriptedStreamer{chunks: c.streamC}, nil
}

type scriptedStreamer struct {
	chunks []llmmodel.Chunk
	i      int
}

func (s *scriptedStreamer) Recv() (llmmodel.Chunk, error) {
	if s.i >= len(s.chunks) {
		return llmmodel.Chunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *scriptedStreamer) Close() error             { return nil }
func (s *scriptedStreamer) Metadata() map[string]any { return nil }

func disabledGovernor() *costgovernor.Governor {
	st := inmem.New()
	return costgovernor.New(costgovernor.Config{Enabled: false}, st, st, nil)
}

func fastRetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestGenerateReturnsTranslatedResponseOnSuccess(t *testing.T) {
	client := &scriptedClient{reply: "hello from the model"}
	g := New(client, disabledGovernor(), WithRetryConfig(fastRetryConfig()))

	resp, err := g.Generate(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello from the model", resp.Text)
	require.Equal(t, int64(5), resp.InputTokens)
	require.Equal(t, int64(7), resp.OutputTokens)
}

func TestGenerateRetriesTransientFailureThenSucceeds(t *testing.T) {
	client := &scriptedClient{errs: []error{llmmodel.ErrRateLimited}, reply: "recovered"}
	g := New(client, disabledGovernor(), WithRetryConfig(fastRetryConfig()))

	resp, err := g.Generate(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi"})
	require.NoError(t, err)
	require.Equal(t, "recovered", resp.Text)
	require.Equal(t, 2, client.calls)
}

func TestGenerateReturnsBudgetExceededWhenGovernorRefuses(t *testing.T) {
	st := inmem.New()
	cost := costgovernor.New(costgovernor.Config{Enabled: true, DailyTokenBudget: 100}, st, st, nil)
	require.NoError(t, cost.RecordUsage(context.Background(), "u1", 100, 0, 0))

	g := New(&scriptedClient{reply: "unused"}, cost)
	_, err := g.Generate(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi"})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindBudgetExceeded))
}

func TestGenerateTranslatesExhaustedRetriesAsTransient(t *testing.T) {
	client := &scriptedClient{errs: []error{llmmodel.ErrRateLimited, llmmodel.ErrRateLimited, llmmodel.ErrRateLimited}}
	cfg := fastRetryConfig()
	cfg.MaxAttempts = 3
	g := New(client, disabledGovernor(), WithRetryConfig(cfg))

	_, err := g.Generate(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi"})
	require.True(t, coreerrors.IsKind(err, coreerrors.KindTransient))
	require.Equal(t, 3, client.calls)
}

func TestGenerateReturnsCircuitOpenAfterRepeatedFailures(t *testing.T) {
	client := &scriptedClient{errs: []error{
		errors.New("vendor down"), errors.New("vendor down"), errors.New("vendor down"),
		errors.New("vendor down"), errors.New("vendor down"),
	}}
	cfg := fastRetryConfig()
	cfg.MaxAttempts = 1
	breakerCfg := circuitbreaker.Config{FailureThreshold: 2, OpenDuration: time.Minute}
	g := New(client, disabledGovernor(), WithRetryConfig(cfg), WithBreakerConfig(breakerCfg))

	call := core.LLMCall{UserID: "u1", Prompt: "hi", Effort: core.EffortRoutine}
	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), call)
		require.Error(t, err)
	}

	_, err := g.Generate(context.Background(), call)
	require.True(t, coreerrors.IsKind(err, coreerrors.KindCircuitOpen))
	require.Equal(t, 2, client.calls, "the third call should be rejected before reaching the vendor client")
}

func TestGenerateWithThinkingForcesThinkingOnTheCall(t *testing.T) {
	client := &scriptedClient{reply: "thought it through"}
	g := New(client, disabledGovernor())

	resp, err := g.GenerateWithThinking(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi", Effort: core.EffortCritical})
	require.NoError(t, err)
	require.Equal(t, "thought it through", resp.Text)
}

func TestStreamDeliversTextThenDoneChunk(t *testing.T) {
	chunks := []llmmodel.Chunk{
		{Type: llmmodel.ChunkTypeText, Message: &llmmodel.Message{Parts: []llmmodel.Part{llmmodel.TextPart{Text: "hel"}}}},
		{Type: llmmodel.ChunkTypeText, Message: &llmmodel.Message{Parts: []llmmodel.Part{llmmodel.TextPart{Text: "lo"}}}},
		{Type: llmmodel.ChunkTypeUsage, UsageDelta: &llmmodel.TokenUsage{InputTokens: 3, OutputTokens: 4}},
		{Type: llmmodel.ChunkTypeStop},
	}
	client := &scriptedClient{streamC: chunks}
	g := New(client, disabledGovernor())

	out, err := g.Stream(context.Background(), core.LLMCall{UserID: "u1", Prompt: "hi"})
	require.NoError(t, err)

	var text string
	var done bool
	for c := range out {
		text += c.Text
		if c.Done {
			done = true
			require.NoError(t, c.Err)
		}
	}
	require.True(t, done)
	require.Equal(t, "hello", text)
}

func TestPumpStreamPropagatesReceiveErrorAsFinalChunk(t *testing.T) {
	g := New(&scriptedClient{}, disabledGovernor())
	boom := errors.New("stream dropped")

	out := make(chan StreamChunk, 4)
	go g.pumpStream(context.Background(), core.LLMCall{}, &erroringStreamer{err: boom}, out)

	var last StreamChunk
	for c := range out {
		last = c
	}
	require.True(t, last.Done)
	require.ErrorIs(t, last.Err, boom)
}

type erroringStreamer struct{ err error }

func (s *erroringStreamer) Recv() (llmmodel.Chunk, error) { return llmmodel.Chunk{}, s.err }
func (s *erroringStreamer) Close() error                  { return nil }
func (s *erroringStreamer) Metadata() map[string]any      { return nil }
