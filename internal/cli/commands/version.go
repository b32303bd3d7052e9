package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/cli/output"
	"github.com/leapstack-labs/polysql/pkg/sql"
)

// BuildInfo identifies a polysql build.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// versionOutput is the JSON form of the version command.
type versionOutput struct {
	BuildInfo
	GoVersion string   `json:"go_version"`
	Dialects  []string `json:"dialects"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the polysql version, the build it came from and the dialects it knows.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutEngine(cmd).Renderer
			dialects := sql.Dialects()

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(versionOutput{BuildInfo: info, GoVersion: runtime.Version(), Dialects: dialects})
			}

			r.Printf("polysql v%s\n", info.Version)
			r.Println("Multi-dialect SQL parser, transpiler, optimizer and executor")
			if info.GitCommit != "" && info.GitCommit != "unknown" {
				r.Println(r.Muted("commit " + info.GitCommit + ", built " + info.BuildDate))
			}
			r.Println(r.Muted(fmt.Sprintf("%s, %d dialects", runtime.Version(), len(dialects))))
			return nil
		},
	}
}
