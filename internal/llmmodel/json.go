package llmmodel

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MarshalJSON encodes a Message while preserving the concrete Part types
// stored in Parts via an explicit Kind discriminator, so round-trips
// through JSON (e.g. persisting a Conversation) do not lose type
// information when Parts is stored as an interface slice.
func (m Message) MarshalJSON() ([]byte, error) {
	type alias struct {
		Role  ConversationRole `json:"Role"`
		Parts []any            `json:"Parts"`
		Meta  map[string]any   `json:"Meta"`
	}
	if len(m.Parts) == 0 {
		return json.Marshal(alias{Role: m.Role, Meta: m.Meta})
	}
	parts := make([]any, 0, len(m.Parts))
	for i, p := range m.Parts {
		enc, err := encodeMessagePart(p)
		if err != nil {
			return nil, fmt.Errorf("encode parts[%d]: %w", i, err)
		}
		parts = append(parts, enc)
	}
	return json.Marshal(alias{Role: m.Role, Parts: parts, Meta: m.Meta})
}

// UnmarshalJSON decodes a Message while materializing concrete Part
// implementations.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role  ConversationRole `json:"Role"`
		Parts []json.RawMessage
		Meta  map[string]any `json:"Meta"`
	}
	var tmp alias
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	m.Role = tmp.Role
	m.Meta = tmp.Meta
	if len(tmp.Parts) == 0 {
		m.Parts = nil
		return nil
	}
	m.Parts = make([]Part, 0, len(tmp.Parts))
	for i, raw := range tmp.Parts {
		part, err := decodeMessagePart(raw)
		if err != nil {
			return fmt.Errorf("decode parts[%d]: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

func encodeMessagePart(p Part) (any, error) {
	switch v := p.(type) {
	case ThinkingPart:
		return struct {
			Kind string `json:"Kind"`
			ThinkingPart
		}{"thinking", v}, nil
	case TextPart:
		return struct {
			Kind string `json:"Kind"`
			TextPart
		}{"text", v}, nil
	case ImagePart:
		return struct {
			Kind string `json:"Kind"`
			ImagePart
		}{"image", v}, nil
	case DocumentPart:
		return struct {
			Kind string `json:"Kind"`
			DocumentPart
		}{"document", v}, nil
	case CitationsPart:
		return struct {
			Kind string `json:"Kind"`
			CitationsPart
		}{"citations", v}, nil
	case ToolUsePart:
		return struct {
			Kind string `json:"Kind"`
			ToolUsePart
		}{"tool_use", v}, nil
	case ToolResultPart:
		return struct {
			Kind string `json:"Kind"`
			ToolResultPart
		}{"tool_result", v}, nil
	case CacheCheckpointPart:
		return struct {
			Kind string `json:"Kind"`
		}{"cache_checkpoint"}, nil
	default:
		return nil, fmt.Errorf("unknown part type %T", p)
	}
}

func decodeMessagePart(raw json.RawMessage) (Part, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		var text string
		if errText := json.Unmarshal(raw, &text); errText == nil {
			return TextPart{Text: text}, nil
		}
		return nil, fmt.Errorf("decode part object: %w", err)
	}
	if len(obj) == 0 {
		return nil, errors.New("empty part payload")
	}

	kindRaw, ok := obj["Kind"]
	if !ok {
		return nil, errors.New("part payload missing Kind discriminator")
	}
	var kind string
	if err := json.Unmarshal(kindRaw, &kind); err != nil {
		return nil, fmt.Errorf("decode Kind: %w", err)
	}
	switch kind {
	case "image":
		var img ImagePart
		if err := json.Unmarshal(raw, &img); err != nil {
			return nil, fmt.Errorf("decode ImagePart: %w", err)
		}
		if img.Format == "" || len(img.Bytes) == 0 {
			return nil, errors.New("ImagePart requires Format and Bytes")
		}
		return img, nil
	case "document":
		var doc DocumentPart
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode DocumentPart: %w", err)
		}
		if doc.Name == "" {
			return nil, errors.New("DocumentPart requires Name")
		}
		sourceCount := 0
		if len(doc.Bytes) > 0 {
			sourceCount++
		}
		if doc.Text != "" {
			sourceCount++
		}
		if len(doc.Chunks) > 0 {
			sourceCount++
		}
		if doc.URI != "" {
			sourceCount++
		}
		if sourceCount != 1 {
			return nil, errors.New("DocumentPart requires exactly one of Bytes, Text, Chunks, or URI")
		}
		return doc, nil
	case "thinking":
		var thinking ThinkingPart
		if err := json.Unmarshal(raw, &thinking); err != nil {
			return nil, fmt.Errorf("decode ThinkingPart: %w", err)
		}
		return thinking, nil
	case "citations":
		var citations CitationsPart
		if err := json.Unmarshal(raw, &citations); err != nil {
			return nil, fmt.Errorf("decode CitationsPart: %w", err)
		}
		return citations, nil
	case "tool_result":
		var result ToolResultPart
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode ToolResultPart: %w", err)
		}
		if result.ToolUseID == "" {
			return nil, errors.New("ToolResultPart requires ToolUseID")
		}
		return result, nil
	case "tool_use":
		var use ToolUsePart
		if err := json.Unmarshal(raw, &use); err != nil {
			return nil, fmt.Errorf("decode ToolUsePart: %w", err)
		}
		if use.Name == "" {
			return nil, errors.New("ToolUsePart requires Name")
		}
		return use, nil
	case "text":
		var text TextPart
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("decode TextPart: %w", err)
		}
		return text, nil
	case "cache_checkpoint":
		return CacheCheckpointPart{}, nil
	default:
		return nil, fmt.Errorf("unknown part kind %q", kind)
	}
}
