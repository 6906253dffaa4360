package cli

import "github.com/spf13/cobra"

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "orderdesk",
		Short:         "Online ordering for restaurants",
		Long:          "orderdesk serves restaurant menus, takes customer orders and moves them through their lifecycle until delivery.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to the YAML config file (default orderdesk.yaml if present)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSweepCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newBoardCmd(opts))
	cmd.AddCommand(newMCPCmd(opts))
	return cmd
}

// NewRootCmdForTest returns the root command for testing.
func NewRootCmdForTest() *cobra.Command {
	return newRootCmd()
}

func Execute() error {
	return newRootCmd().Execute()
}
