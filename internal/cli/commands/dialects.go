package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/polysql/pkg/sql"
)

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Long:  `List the registered dialect names. The default is used when --dialect is not given.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContextWithoutEngine(cmd).Renderer
			return r.Dialects(sql.Dialects(), sql.DefaultDialect())
		},
	}
}
