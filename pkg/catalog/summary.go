package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NormalizeSchema converts an irregularly shaped schema value into a plain
// map via a JSON round trip. Returns nil when the value cannot be
// represented as a JSON object.
func NormalizeSchema(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	bs, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		return nil
	}
	return m
}

// Summary renders a one-line human-readable description of the tool,
// degrading to name and description when the schema is absent or malformed.
func (s *ToolSpec) Summary() string {
	line := s.Name
	if s.Description != "" {
		line += ": " + s.Description
	}
	if args := schemaArgNames(s.InputSchema); len(args) > 0 {
		line += fmt.Sprintf(" (args: %s)", strings.Join(args, ", "))
	}
	return line
}

// PromptSummary renders the specs as a block suitable for a system prompt.
func PromptSummary(specs []*ToolSpec) string {
	lines := make([]string, 0, len(specs))
	for _, spec := range specs {
		lines = append(lines, "- "+spec.Summary())
	}
	return strings.Join(lines, "\n")
}

func schemaArgNames(schema any) []string {
	m := NormalizeSchema(schema)
	if m == nil {
		return nil
	}
	props, ok := m["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return nil
	}

	required := make(map[string]bool)
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	args := make([]string, 0, len(props))
	for name := range props {
		if required[name] {
			name += "*"
		}
		args = append(args, name)
	}
	sort.Strings(args)
	return args
}
