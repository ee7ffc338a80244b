package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newReindexCmd(a *app) *cobra.Command {
	var verifyOnly bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the card name search index",
		Long: `Rebuild the card name search index from the card table. With --verify the
index is only compared against the card table and the command fails when
they differ.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if !verifyOnly {
				n, err := store.Reindex(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Indexed %d cards\n", n)
			}

			report, err := store.VerifyIndex(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "cards=%d indexed=%d missing=%d stale=%d orphans=%d\n",
				report.Cards, report.Indexed, report.Missing, report.Stale, report.Orphans)
			if !report.Consistent() {
				return errors.New("search index is out of sync; run cardvault reindex")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&verifyOnly, "verify", false, "only check the index")
	return cmd
}
