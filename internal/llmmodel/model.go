// Package llmmodel defines the provider-agnostic message and streaming
// types the LLM Gateway uses to talk to model vendors. Messages are typed
// parts (thinking, text, tool use/results, citations) rather than flattened
// strings, so the Gateway and Cost Governor can reason about usage and
// content without parsing provider-specific wire formats.
package llmmodel

import (
	"context"
	"encoding/json"
	"errors"
)

// ConversationRole is the role for a message in a conversation.
type ConversationRole string

type (
	// Part is a marker interface implemented by all message parts. Concrete
	// implementations capture user-visible text, provider-issued thinking, and
	// tool call/result content in a strongly typed form.
	Part interface {
		isPart()
	}

	// ImageFormat identifies the on-wire format of an image part.
	ImageFormat string

	// DocumentFormat identifies the on-wire format (extension) of a document part.
	DocumentFormat string

	// TextPart is a plain text content block in a message.
	TextPart struct {
		Text string
	}

	// ImagePart carries image bytes attached to a user message.
	ImagePart struct {
		Format ImageFormat
		Bytes  []byte
	}

	// DocumentPart carries document content attached to a user message, for
	// example a clinical study summary or a regulatory label a rep wants
	// the assistant to reason over and cite. Exactly one of Bytes, Text,
	// Chunks, or URI must be provided.
	DocumentPart struct {
		// Name is a short neutral identifier for the document.
		Name string

		// Format identifies the document format/extension.
		Format DocumentFormat

		// Bytes carries the raw document bytes when uploaded.
		Bytes []byte

		// Text carries the document content as a single text blob.
		Text string

		// Chunks carries the document split into logical chunks when
		// citations should reference chunk indices rather than char spans.
		Chunks []string

		// URI locates the document externally (e.g. "s3://bucket/key.pdf")
		// when it should not be embedded in the request payload. Provider
		// adapters fail fast on unsupported URI schemes.
		URI string

		// Context is optional guidance on how the document should be
		// interpreted when generating citations.
		Context string

		// Cite requests provider-native citations when supported.
		Cite bool
	}

	// CitationsPart is generated content paired with citation metadata,
	// emitted by providers instead of a TextPart when citation generation
	// is enabled.
	CitationsPart struct {
		Text      string
		Citations []Citation
	}

	// Citation links generated content back to a location in a source document.
	Citation struct {
		Title         string
		Source        string
		Location      CitationLocation
		SourceContent []string
	}

	// CitationLocation identifies where cited content can be found within
	// a document. Exactly one of DocumentChar, DocumentChunk, or
	// DocumentPage should be set when present.
	CitationLocation struct {
		DocumentChar  *DocumentCharLocation
		DocumentChunk *DocumentChunkLocation
		DocumentPage  *DocumentPageLocation
	}

	DocumentCharLocation struct {
		DocumentIndex int
		Start         int
		End           int
	}

	DocumentChunkLocation struct {
		DocumentIndex int
		Start         int
		End           int
	}

	DocumentPageLocation struct {
		DocumentIndex int
		Start         int
		End           int
	}

	// ThinkingPart represents provider-issued extended-reasoning content.
	// Callers treat this as opaque and surface it according to UI policy.
	ThinkingPart struct {
		// Text is the provider-visible reasoning text when available.
		Text string

		// Signature is the provider-issued signature for Text when present.
		Signature string

		// Redacted carries provider-issued reasoning content in redacted
		// form when plaintext Text is not available.
		Redacted []byte

		// Index is the position of this block in the reasoning sequence.
		Index int

		// Final reports whether this is the last reasoning block of the turn.
		Final bool
	}

	// ToolUsePart declares a tool invocation by the assistant. The
	// orchestrator turns these into concrete agent/tool executions and
	// correlates results via ToolResultPart.ToolUseID.
	ToolUsePart struct {
		ID    string
		Name  string
		Input any
	}

	// ToolResultPart carries a tool result attached to a subsequent user
	// message so the model can read it in the next turn.
	ToolResultPart struct {
		ToolUseID string
		Content   any
		IsError   bool
	}

	// CacheCheckpointPart marks a cache boundary in a message. Provider
	// adapters translate this to provider-specific caching directives;
	// providers without caching support ignore it.
	CacheCheckpointPart struct{}

	// Message is a single chat message. Messages are ordered and grouped
	// into a transcript passed to model clients; parts preserve structure
	// rather than flattening to plain strings.
	Message struct {
		Role  ConversationRole
		Parts []Part
		Meta  map[string]any
	}

	// ToolDefinition describes a tool exposed to the model: its name,
	// description, and JSON Schema input shape.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema any
	}

	// ToolCall is a requested tool invocation from the model.
	ToolCall struct {
		Name string

		// Payload is the canonical JSON arguments supplied by the model.
		// Provider adapters populate this as json.RawMessage; callers treat
		// it as opaque JSON.
		Payload json.RawMessage

		ID string
	}

	// ToolCallDelta is an incremental tool-call payload fragment streamed
	// by providers while they are still constructing the tool input JSON.
	// This is a best-effort UX signal for progressive previews; the
	// canonical payload remains ToolCall.Payload on the closing chunk.
	ToolCallDelta struct {
		Name  string
		ID    string
		Delta string
	}

	// ToolChoiceMode controls how the model uses tools for a request. Not
	// all providers support all modes; adapters fail fast rather than
	// silently degrading.
	ToolChoiceMode string

	// ToolChoice configures optional tool-use behavior for a Request. Nil
	// means the provider's default (typically auto-selection).
	ToolChoice struct {
		Mode ToolChoiceMode
		Name string
	}

	// TokenUsage tracks token counts for a model call.
	TokenUsage struct {
		InputTokens      int
		OutputTokens     int
		TotalTokens      int
		CacheReadTokens  int
		CacheWriteTokens int
	}

	// Request captures inputs for a model invocation.
	Request struct {
		RunID       string
		Model       string
		ModelClass  ModelClass
		Messages    []*Message
		Temperature float32
		Tools       []*ToolDefinition
		ToolChoice  *ToolChoice
		MaxTokens   int
		Stream      bool
		Thinking    *ThinkingOptions
		Cache       *CacheOptions
	}

	// Response is the result of a non-streaming invocation.
	Response struct {
		Content    []Message
		ToolCalls  []ToolCall
		Usage      TokenUsage
		StopReason string
	}

	// Chunk is a streaming event from the model, classified by Type.
	Chunk struct {
		Type          string
		Message       *Message
		Thinking      string
		ToolCall      *ToolCall
		ToolCallDelta *ToolCallDelta
		UsageDelta    *TokenUsage
		StopReason    string
	}

	// ThinkingOptions configures provider extended-thinking behavior.
	//
	// Contract: when Enable is true, callers must leave Request.Temperature
	// unset. The Anthropic adapter (internal/llmmodel/anthropic) enforces
	// this centrally rather than trusting every call site to remember it.
	ThinkingOptions struct {
		Enable       bool
		Interleaved  bool
		BudgetTokens int
	}

	// CacheOptions configures prompt caching. Providers without caching
	// support ignore these flags.
	CacheOptions struct {
		AfterSystem bool
		AfterTools  bool
	}

	// ModelClass identifies a model family; providers map classes to
	// concrete model identifiers.
	ModelClass string

	// Client is the provider-agnostic model client the Gateway talks to.
	Client interface {
		Complete(ctx context.Context, req *Request) (*Response, error)
		Stream(ctx context.Context, req *Request) (Streamer, error)
	}

	// Streamer delivers incremental model output. Callers must drain the
	// stream until Recv returns io.EOF or another terminal error, then
	// call Close.
	Streamer interface {
		Recv() (Chunk, error)
		Close() error
		Metadata() map[string]any
	}
)

const (
	ConversationRoleSystem    ConversationRole = "system"
	ConversationRoleUser      ConversationRole = "user"
	ConversationRoleAssistant ConversationRole = "assistant"
)

const (
	ToolChoiceModeAuto ToolChoiceMode = "auto"
	ToolChoiceModeNone ToolChoiceMode = "none"
	ToolChoiceModeAny  ToolChoiceMode = "any"
	ToolChoiceModeTool ToolChoiceMode = "tool"
)

const (
	ChunkTypeText          = "text"
	ChunkTypeToolCall      = "tool_call"
	ChunkTypeToolCallDelta = "tool_call_delta"
	ChunkTypeThinking      = "thinking"
	ChunkTypeUsage         = "usage"
	ChunkTypeStop          = "stop"
)

const (
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpeg"
	ImageFormatGIF  ImageFormat = "gif"
	ImageFormatWEBP ImageFormat = "webp"
)

const (
	DocumentFormatPDF  DocumentFormat = "pdf"
	DocumentFormatCSV  DocumentFormat = "csv"
	DocumentFormatDOC  DocumentFormat = "doc"
	DocumentFormatDOCX DocumentFormat = "docx"
	DocumentFormatXLS  DocumentFormat = "xls"
	DocumentFormatXLSX DocumentFormat = "xlsx"
	DocumentFormatHTML DocumentFormat = "html"
	DocumentFormatTXT  DocumentFormat = "txt"
	DocumentFormatMD   DocumentFormat = "md"
)

const (
	// ModelClassHighReasoning selects the high-reasoning model family, used
	// for "critical" effort calls.
	ModelClassHighReasoning ModelClass = "high-reasoning"
	// ModelClassDefault selects the default model family, used for
	// "complex" effort calls.
	ModelClassDefault ModelClass = "default"
	// ModelClassSmall selects a small/cheap model family, used for
	// "routine" effort calls.
	ModelClassSmall ModelClass = "small"
)

// ErrStreamingUnsupported indicates the provider does not support streaming.
var ErrStreamingUnsupported = errors.New("llmmodel: streaming not supported")

// ErrRateLimited indicates the provider rejected the request due to rate
// limiting after exhausting configured retries. Callers must not retry in a
// tight loop; this is a transient infrastructure failure safe to surface up.
var ErrRateLimited = errors.New("llmmodel: rate limited")

func (TextPart) isPart()            {}
func (ImagePart) isPart()           {}
func (DocumentPart) isPart()        {}
func (CitationsPart) isPart()       {}
func (ThinkingPart) isPart()        {}
func (ToolUsePart) isPart()         {}
func (ToolResultPart) isPart()      {}
func (CacheCheckpointPart) isPart() {}
