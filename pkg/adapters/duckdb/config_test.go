package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"json", "icu"},
				"settings": map[string]any{
					"threads":      4,
					"memory_limit": "1GB",
				},
			},
			want: &Params{
				Extensions: []string{"json", "icu"},
				Settings:   map[string]string{"threads": "4", "memory_limit": "1GB"},
			},
		},
		{
			name:    "unknown key",
			input:   map[string]any{"secrets": []any{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_SetupStatements(t *testing.T) {
	p := &Params{
		Extensions: []string{"json"},
		Settings:   map[string]string{"threads": "2", "memory_limit": "it's"},
	}
	assert.Equal(t, []string{
		"INSTALL json",
		"LOAD json",
		"SET memory_limit = 'it''s'",
		"SET threads = '2'",
	}, p.setupStatements())
}
