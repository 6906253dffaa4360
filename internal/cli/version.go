package cli

import (
	"fmt"

	"orderdesk/internal/dal"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show orderdesk version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "orderdesk %s (%s) schema %s sqlite:%s\n",
				version, commit, dal.CurrentSchemaVersion, dal.SQLiteBuildMode)
			return nil
		},
	}
}
