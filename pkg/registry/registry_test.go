package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{
		"process_hedge_prompt",
		"query_supabase_data",
		"get_system_health",
		"manage_cache",
	} {
		_, ok := r.Get(name)
		assert.True(t, ok, "missing descriptor for %s", name)
	}
	assert.Len(t, r.Names(), 4)
}

func TestValidateInput(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name      string
		tool      string
		input     map[string]interface{}
		violation bool
	}{
		{
			"valid prompt request",
			"process_hedge_prompt",
			map[string]interface{}{"user_prompt": "check HKD capacity", "use_cache": true},
			false,
		},
		{
			"missing required prompt",
			"process_hedge_prompt",
			map[string]interface{}{"currency": "HKD"},
			true,
		},
		{
			"bad currency shape",
			"process_hedge_prompt",
			map[string]interface{}{"user_prompt": "x", "currency": "HONG"},
			true,
		},
		{
			"bad stage enum",
			"process_hedge_prompt",
			map[string]interface{}{"user_prompt": "x", "stage_mode": "4"},
			true,
		},
		{
			"negative amount",
			"process_hedge_prompt",
			map[string]interface{}{"user_prompt": "x", "amount": -5.0},
			true,
		},
		{
			"valid query request",
			"query_supabase_data",
			map[string]interface{}{"table_name": "hedge_instructions", "operation": "select"},
			false,
		},
		{
			"bad operation enum",
			"query_supabase_data",
			map[string]interface{}{"table_name": "hedge_instructions", "operation": "truncate"},
			true,
		},
		{
			"limit above cap",
			"query_supabase_data",
			map[string]interface{}{"table_name": "hedge_instructions", "operation": "select", "limit": 500.0},
			true,
		},
		{
			"valid cache request",
			"manage_cache",
			map[string]interface{}{"operation": "clear_currency", "currency": "HKD"},
			false,
		},
		{
			"bad cache operation",
			"manage_cache",
			map[string]interface{}{"operation": "flush"},
			true,
		},
		{
			"unregistered schema validates nothing",
			"get_system_health",
			map[string]interface{}{"anything": "goes"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations, err := r.ValidateInput(tt.tool, tt.input)
			require.NoError(t, err)
			if tt.violation {
				assert.NotEmpty(t, violations)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.json")

	content := `[
		{
			"name": "custom_tool",
			"description": "a deployment-specific tool",
			"inputSchema": {"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}}}
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := LoadRegistry(path)
	require.NoError(t, err)

	_, ok := r.Get("custom_tool")
	assert.True(t, ok)

	violations, err := r.ValidateInput("custom_tool", map[string]interface{}{})
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
