package server

import (
	"encoding/json"
	"testing"
)

func TestBuildSchemaMap(t *testing.T) {
	m := buildSchemaMap()

	tools := []string{
		"analyze", "analyze_status", "call_graph",
		"disassemble", "class_structure", "callers", "callees",
	}
	for _, name := range tools {
		t.Run(name, func(t *testing.T) {
			raw, ok := m[name]
			if !ok {
				t.Fatalf("no schema registered for %s", name)
			}
			var parsed map[string]any
			if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
				t.Fatalf("schema is not valid JSON: %v", err)
			}
		})
	}
	if len(m) != len(tools) {
		t.Errorf("schema map has %d entries, want %d", len(m), len(tools))
	}
}
