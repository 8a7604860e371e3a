// Package registry holds the tool catalog: name, description and a
// JSON schema for each inbound operation. Inputs are validated against
// the schema before any handler logic runs.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// ToolDescriptor describes one inbound operation.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Registry maps tool names to descriptors with compiled schemas.
type Registry struct {
	descriptors map[string]ToolDescriptor
	schemas     map[string]*gojsonschema.Schema
}

// New compiles the given descriptors. A descriptor without a schema is
// registered but never schema-validated.
func New(descriptors []ToolDescriptor) (*Registry, error) {
	r := &Registry{
		descriptors: make(map[string]ToolDescriptor, len(descriptors)),
		schemas:     make(map[string]*gojsonschema.Schema, len(descriptors)),
	}
	for _, d := range descriptors {
		r.descriptors[d.Name] = d
		if len(d.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(d.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compiling schema for %s: %w", d.Name, err)
		}
		r.schemas[d.Name] = schema
	}
	return r, nil
}

// Get returns the descriptor for a tool name.
func (r *Registry) Get(name string) (ToolDescriptor, bool) {
	d, ok := r.descriptors[name]
	return d, ok
}

// Names lists every registered tool.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	return names
}

// ValidateInput checks the raw argument map against the tool's schema.
// It returns a readable list of violations, empty when valid.
func (r *Registry) ValidateInput(name string, input map[string]interface{}) ([]string, error) {
	schema, ok := r.schemas[name]
	if !ok {
		return nil, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validating input for %s: %w", name, err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}

// LoadRegistry reads a descriptor array from a JSON file. Deployments
// can override the built-in catalog this way.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	var descriptors []ToolDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}
	return New(descriptors)
}

// DefaultRegistry returns the built-in tool catalog.
func DefaultRegistry() *Registry {
	r, err := New(defaultDescriptors())
	if err != nil {
		// Built-in schemas are fixed at compile time; a failure here is
		// a programming error.
		panic(err)
	}
	return r
}

func defaultDescriptors() []ToolDescriptor {
	return []ToolDescriptor{
		{
			Name:        "process_hedge_prompt",
			Description: "Resolve a natural-language hedge prompt into data, bookings or an answer",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"user_prompt":       {"type": "string", "minLength": 1},
					"template_category": {"type": "string"},
					"currency":          {"type": "string", "pattern": "^[A-Za-z]{3}$"},
					"entity_id":         {"type": "string"},
					"nav_type":          {"type": "string"},
					"amount":            {"type": "number", "minimum": 0},
					"use_cache":         {"type": "boolean"},
					"operation_type":    {"type": "string", "enum": ["read", "write", "amend", "mx_booking", "gl_posting"]},
					"stage_mode":        {"type": "string", "enum": ["auto", "1A", "2", "3"]},
					"write_data":        {"type": "object"},
					"instruction_id":    {"type": "string"},
					"user_id":           {"type": "string"}
				},
				"required": ["user_prompt"]
			}`),
		},
		{
			Name:        "query_supabase_data",
			Description: "Run a validated select, insert, update or delete against an allow-listed table",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"table_name": {"type": "string", "minLength": 1},
					"operation":  {"type": "string", "enum": ["select", "insert", "update", "delete"]},
					"filters":    {"type": "object"},
					"data":       {"type": "object"},
					"limit":      {"type": "integer", "minimum": 1, "maximum": 200},
					"order_by":   {"type": "string"},
					"stage_mode": {"type": "string", "enum": ["auto", "1A", "2", "3"]}
				},
				"required": ["table_name", "operation"]
			}`),
		},
		{
			Name:        "get_system_health",
			Description: "Report component reachability, uptime and request counters",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        "manage_cache",
			Description: "Inspect cache statistics or clear cached entries for a currency",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"operation": {"type": "string", "enum": ["stats", "info", "clear_currency"]},
					"currency":  {"type": "string", "pattern": "^[A-Za-z]{3}$"}
				},
				"required": ["operation"]
			}`),
		},
	}
}
