package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/goalmesh/core"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls the first JSON object out of a model completion. It
// prefers a fenced code block, then falls back to the outermost brace span.
func ExtractJSON(content string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start >= 0 && end > start {
		return content[start : end+1], true
	}
	return "", false
}

// ExtractPlan decodes a plan from a model completion. A completion without a
// parsable JSON object yields an error; callers treat that as "no plan".
func ExtractPlan(content string) (*core.Plan, error) {
	raw, ok := ExtractJSON(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in completion")
	}
	var plan core.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// ExtractStructured decodes the auxiliary extraction response into a map.
func ExtractStructured(content string) (map[string]any, error) {
	raw, ok := ExtractJSON(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in completion")
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode structured data: %w", err)
	}
	return out, nil
}
