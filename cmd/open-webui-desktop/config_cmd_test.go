package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigAssignments(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected map[string]interface{}
	}{
		{
			name:     "number value",
			args:     []string{"port=8080"},
			expected: map[string]interface{}{"port": float64(8080)},
		},
		{
			name:     "boolean value",
			args:     []string{"serve_on_local_network=true"},
			expected: map[string]interface{}{"serve_on_local_network": true},
		},
		{
			name:     "bare string falls back to string",
			args:     []string{"log_level=debug"},
			expected: map[string]interface{}{"log_level": "debug"},
		},
		{
			name:     "quoted json string loses quotes",
			args:     []string{`data_dir="/tmp/webui"`},
			expected: map[string]interface{}{"data_dir": "/tmp/webui"},
		},
		{
			name: "array value",
			args: []string{`server_command=["python","-m","my_server"]`},
			expected: map[string]interface{}{
				"server_command": []interface{}{"python", "-m", "my_server"},
			},
		},
		{
			name:     "empty value stays empty string",
			args:     []string{"lan_host="},
			expected: map[string]interface{}{"lan_host": ""},
		},
		{
			name:     "host port value",
			args:     []string{"listen=127.0.0.1:8790"},
			expected: map[string]interface{}{"listen": "127.0.0.1:8790"},
		},
		{
			name:     "value containing equals sign splits on first",
			args:     []string{"extra_env=KEY=VALUE"},
			expected: map[string]interface{}{"extra_env": "KEY=VALUE"},
		},
		{
			name: "multiple assignments",
			args: []string{"port=9090", "auto_update=false"},
			expected: map[string]interface{}{
				"port":        float64(9090),
				"auto_update": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := parseConfigAssignments(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, patch)
		})
	}
}

func TestParseConfigAssignmentsRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no equals sign", args: []string{"port"}},
		{name: "empty key", args: []string{"=8080"}},
		{name: "valid then malformed", args: []string{"port=8080", "oops"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfigAssignments(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "expected key=value")
		})
	}
}
