package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP JSON API",
		Long: `Serve transpile, format, validate, analyze, optimize and execute over
HTTP under /v1. Tables for /v1/execute are read from --tables-dir; with
--watch they are reloaded whenever a file there changes.`,
		Example: `  polysql serve --port 8080
  polysql serve --tables-dir ./tables --watch`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().Int("port", 0, "Port to listen on (default 8080)")
	cmd.Flags().String("tables-dir", "", "Directory of JSON/YAML table files")
	cmd.Flags().Bool("watch", false, "Reload tables when files in --tables-dir change")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	scfg := cc.Cfg.Server

	srv, err := server.New(server.Config{
		Engine:    cc.Engine,
		Port:      scfg.Port,
		TablesDir: scfg.TablesDir,
		Watch:     scfg.Watch,
		Logger:    cc.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	cc.Renderer.Printf("Serving on http://localhost:%d (%d tables)\n", scfg.Port, len(srv.Tables()))
	cc.Renderer.Println(cc.Renderer.Muted("Press Ctrl+C to stop"))

	return srv.Serve(cmd.Context())
}
