package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"orderdesk/internal/service"

	"github.com/spf13/cobra"
)

func newSweepCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel pending orders older than the TTL once and exit",
		Long:  "Runs a single reaper pass. Useful from cron when serve runs with --no-reaper.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts, quietLogs)
			if err != nil {
				return err
			}
			defer a.Close()

			reaper := a.reaper
			if ttl > 0 {
				cfg := a.config.Reaper
				cfg.TTL = ttl
				reaper = service.NewReaper(a.store, a.orders, cfg, a.logger)
			}

			result, err := reaper.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Pending TTL for this pass (overrides config)")

	return cmd
}
