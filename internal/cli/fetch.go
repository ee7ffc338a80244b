package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/cardvault/internal/fetch"
	"github.com/HendryAvila/cardvault/internal/server"
	"github.com/HendryAvila/cardvault/internal/vault"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		source   string
		dest     string
		doImport bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the MTGJSON AllPrintings snapshot",
		Long: `Download a catalog snapshot over HTTP(S), or copy it from a local path.
The default source is the configured mtgjson_url and the default destination
is AllPrintings.sqlite in the data directory. With --import the snapshot is
loaded into the default catalog afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dest == "" {
				if a.cfg.DataDir == "" {
					return errors.New("--dest is required when no data_dir is configured")
				}
				dest = a.cfg.SnapshotPath()
			}

			f := fetch.New(a.cfg.Fetch(a.log, "cardvault/"+server.Version))
			res := f.Fetch(cmd.Context(), source, dest)
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %s -> %s (%d bytes)\n", res.Source, res.Destination, res.Bytes)

			if !doImport {
				return nil
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return runImport(cmd, a, store, vault.DefaultCatalogName, res.Destination)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "URL or local path (default: mtgjson_url)")
	cmd.Flags().StringVar(&dest, "dest", "", "destination file (default: <data_dir>/AllPrintings.sqlite)")
	cmd.Flags().BoolVar(&doImport, "import", false, "import the snapshot into the default catalog")
	return cmd
}
