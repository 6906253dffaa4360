package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"orderdesk/internal/service"

	"github.com/spf13/cobra"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Provision restaurants, categories and products from a YAML catalog",
		Long:  "Creates every restaurant in the catalog that does not exist yet. Existing restaurants are left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			catalog, err := service.ParseCatalog(data)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts, quietLogs)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := service.Provision(cmd.Context(), a.store, catalog, a.logger)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalog YAML file")

	return cmd
}
