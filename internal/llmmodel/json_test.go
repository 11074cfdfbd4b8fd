package llmmodel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageJSONRoundTripsMixedParts(t *testing.T) {
	msg := Message{
		Role: ConversationRoleAssistant,
		Parts: []Part{
			TextPart{Text: "here is the summary"},
			ToolUsePart{ID: "call-1", Name: "search_accounts", Input: map[string]any{"query": "acme"}},
			CacheCheckpointPart{},
		},
		Meta: map[string]any{"turn": float64(3)},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, msg.Role, decoded.Role)
	require.Equal(t, msg.Meta, decoded.Meta)
	require.Len(t, decoded.Parts, 3)
	require.Equal(t, TextPart{Text: "here is the summary"}, decoded.Parts[0])
	require.IsType(t, ToolUsePart{}, decoded.Parts[1])
	require.Equal(t, CacheCheckpointPart{}, decoded.Parts[2])
}

func TestMessageJSONWithNoPartsDecodesToNilParts(t *testing.T) {
	msg := Message{Role: ConversationRoleUser}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Nil(t, decoded.Parts)
}

func TestUnmarshalPartAcceptsBarePlainTextForBackwardCompatibility(t *testing.T) {
	part, err := decodeMessagePart(json.RawMessage(`"plain string part"`))
	require.NoError(t, err)
	require.Equal(t, TextPart{Text: "plain string part"}, part)
}

func TestUnmarshalPartRejectsMissingKindDiscriminator(t *testing.T) {
	_, err := decodeMessagePart(json.RawMessage(`{"Text":"no kind field"}`))
	require.Error(t, err)
}

func TestUnmarshalPartRejectsUnknownKind(t *testing.T) {
	_, err := decodeMessagePart(json.RawMessage(`{"Kind":"mystery"}`))
	require.Error(t, err)
}

func TestUnmarshalDocumentPartRequiresExactlyOneSource(t *testing.T) {
	_, err := decodeMessagePart(json.RawMessage(`{"Kind":"document","Name":"contract.pdf"}`))
	require.Error(t, err, "a document with no Bytes, Text, Chunks, or URI is invalid")

	_, err = decodeMessagePart(json.RawMessage(`{"Kind":"document","Name":"contract.pdf","Text":"body","URI":"s3://x"}`))
	require.Error(t, err, "a document with two sources at once is invalid")
}

func TestUnmarshalToolResultPartRequiresToolUseID(t *testing.T) {
	_, err := decodeMessagePart(json.RawMessage(`{"Kind":"tool_result","Content":"ok"}`))
	require.Error(t, err)
}

func TestEncodeMessagePartRejectsUnknownType(t *testing.T) {
	_, err := encodeMessagePart(nil)
	require.Error(t, err)
}
