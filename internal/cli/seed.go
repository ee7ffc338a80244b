package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the default catalog and collection",
		Long:  `Create the "MTGJSON Catalog" catalog and the "My Collection" collection. Safe to run repeatedly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cat, col, err := store.SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog: %s (%s)\nCollection: %s (%s)\n", cat.Name, cat.ID, col.Name, col.ID)
			return nil
		},
	}
}
