package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/polysql/internal/cli/config"
)

func runVersion(t *testing.T, info BuildInfo, outputFormat string) string {
	t.Helper()
	cfg := config.Default()
	cfg.OutputFormat = outputFormat
	config.SetCurrentConfig(cfg)
	t.Cleanup(config.ResetConfig)

	cmd := NewVersionCommand(info)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestVersionCommand_Text(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		want    []string
		notWant string
	}{
		{
			name: "release build",
			info: BuildInfo{Version: "1.2.3", GitCommit: "abc1234", BuildDate: "2026-01-02"},
			want: []string{"polysql v1.2.3", "transpiler", "commit abc1234, built 2026-01-02", "dialects"},
		},
		{
			name:    "dev build",
			info:    BuildInfo{Version: "dev", GitCommit: "unknown", BuildDate: "unknown"},
			want:    []string{"polysql vdev"},
			notWant: "commit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runVersion(t, tt.info, "text")
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			if tt.notWant != "" {
				assert.NotContains(t, out, tt.notWant)
			}
		})
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	out := runVersion(t, BuildInfo{Version: "1.2.3", GitCommit: "abc1234", BuildDate: "2026-01-02"}, "json")

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, "1.2.3", res["version"])
	assert.Equal(t, "abc1234", res["git_commit"])
	assert.NotEmpty(t, res["go_version"])
	assert.Contains(t, res["dialects"], "postgres")
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	cmd := NewVersionCommand(BuildInfo{Version: "1.0.0"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
