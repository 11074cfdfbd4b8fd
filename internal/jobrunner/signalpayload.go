package jobrunner

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/aria-platform/aria-core/internal/core"
)

// signalCandidate is one market-signal candidate a Scout run surfaced,
// parsed out of its structured JSON response.
type signalCandidate struct {
	Headline  string  `json:"headline"`
	Summary   string  `json:"summary"`
	Relevance float64 `json:"relevance"`
}

// signalCandidateSchemaDoc is the JSON Schema the Scout's structured
// output must satisfy before the signal-scan job trusts it.
var signalCandidateSchemaDoc = map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []any{"headline", "relevance"},
		"properties": map[string]any{
			"headline":  map[string]any{"type": "string", "minLength": 1},
			"summary":   map[string]any{"type": "string"},
			"relevance": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
	},
}

// parseSignalCandidates validates raw against signalCandidateSchemaDoc and
// decodes it into signalCandidates. A Scout response that fails schema
// validation or JSON parsing yields a nil slice and a non-nil error; the
// caller treats that as "no signals produced this round" rather than a
// hard failure, since an LLM response occasionally drifts from the
// requested shape.
func parseSignalCandidates(raw string) ([]signalCandidate, error) {
	var payload any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("jobrunner: scout output is not JSON: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("signal-candidates.json", signalCandidateSchemaDoc); err != nil {
		return nil, fmt.Errorf("jobrunner: add signal schema resource: %w", err)
	}
	schema, err := c.Compile("signal-candidates.json")
	if err != nil {
		return nil, fmt.Errorf("jobrunner: compile signal schema: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("jobrunner: scout output failed schema validation: %w", err)
	}

	var candidates []signalCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return nil, fmt.Errorf("jobrunner: decode signal candidates: %w", err)
	}
	return candidates, nil
}

// priorityForRelevance implements the job's own priority mapping: signal
// relevance >= 0.8 is HIGH, >= 0.6 is MEDIUM, else LOW. The router never
// makes this decision; the job does, per spec.
func priorityForRelevance(relevance float64) core.Priority {
	switch {
	case relevance >= 0.8:
		return core.PriorityHigh
	case relevance >= 0.6:
		return core.PriorityMedium
	default:
		return core.PriorityLow
	}
}
