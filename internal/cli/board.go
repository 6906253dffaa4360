package cli

import (
	"errors"
	"fmt"

	"orderdesk/internal/models"
	"orderdesk/internal/tui"

	"github.com/spf13/cobra"
)

func newBoardCmd(opts *rootOptions) *cobra.Command {
	var (
		restaurant string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show a restaurant's order board in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if restaurant == "" {
				return errors.New("--restaurant is required")
			}

			a, err := newApp(cmd.Context(), opts, quietLogs)
			if err != nil {
				return err
			}
			defer a.Close()

			tenant, err := a.menu.GetTenant(cmd.Context(), restaurant)
			if err != nil {
				return err
			}
			orders, err := a.orders.ListOrders(cmd.Context(), restaurant, models.OrderFilters{Limit: limit})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderBoard(restaurant, orders, tui.BoardOptions{
				StaleAfter: a.config.Reaper.TTL,
				Currency:   tenant.Currency,
			}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&restaurant, "restaurant", "r", "", "Restaurant slug")
	cmd.Flags().IntVar(&limit, "limit", 100, "Most recent orders to load")

	return cmd
}
