package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/cardvault/internal/ingest"
	"github.com/HendryAvila/cardvault/internal/vault"
)

func newImportCmd(a *app) *cobra.Command {
	var catalogName string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a catalog snapshot",
		Long: `Import catalog entries from a snapshot file using the adapter for the
catalog's source type. Without a file argument the fetched snapshot in the
data directory is used. Importing into the default catalog seeds it first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.SnapshotPath()
			if len(args) == 1 {
				path = args[0]
			} else if a.cfg.DataDir == "" {
				return errors.New("a snapshot file is required when no data_dir is configured")
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return runImport(cmd, a, store, catalogName, path)
		},
	}
	cmd.Flags().StringVar(&catalogName, "catalog", vault.DefaultCatalogName, "name of the catalog to import into")
	return cmd
}

// runImport loads path into the named catalog. The default catalog is
// created on demand; any other name must already exist.
func runImport(cmd *cobra.Command, a *app, store *vault.Store, catalogName, path string) error {
	ctx := cmd.Context()

	cat, err := store.FindCatalogByName(ctx, catalogName)
	if errors.Is(err, vault.ErrNotFound) && catalogName == vault.DefaultCatalogName {
		cat, _, err = store.SeedDefaults(ctx)
	}
	if err != nil {
		return fmt.Errorf("catalog %q: %w", catalogName, err)
	}

	adapter, err := ingest.AdapterFor(store, cat, a.cfg.Ingest(a.log))
	if err != nil {
		return err
	}
	stats, err := adapter.Import(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d sets and %d cards into %q", stats.Sets, stats.Cards, cat.Name)
	if stats.Version != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (MTGJSON %s)", stats.Version)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
