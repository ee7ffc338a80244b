// Package cli implements the cardvault command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HendryAvila/cardvault/internal/config"
	"github.com/HendryAvila/cardvault/internal/server"
	"github.com/HendryAvila/cardvault/internal/vault"
)

// app carries state shared by every subcommand once the root command has
// loaded the configuration.
type app struct {
	cfgFile  string
	logLevel string
	inMemory bool

	v   *viper.Viper
	cfg config.Config
	log *slog.Logger
}

// NewRootCommand builds the cardvault command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "cardvault",
		Short: "Catalog and storage manager for Magic: The Gathering collections",
		Long: `cardvault keeps a searchable catalog of Magic: The Gathering printings and
records the physical copies you own: their condition, finish and language,
and the shelves, boxes, binders and decks they live in.

Run "cardvault serve" to expose the vault to an AI client over MCP (stdio).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.cardvault.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.inMemory, "in-memory", false, "use a throwaway in-memory database")

	root.AddCommand(
		newServeCmd(a),
		newFetchCmd(a),
		newImportCmd(a),
		newSearchCmd(a),
		newSeedCmd(a),
		newReindexCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// load resolves configuration and installs the logger. Logs go to stderr;
// stdout carries command output and, for serve, the MCP transport.
func (a *app) load(cmd *cobra.Command) error {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		a.v.Set(config.KeyLogLevel, a.logLevel)
	}
	if f := cmd.Flags().Lookup("in-memory"); f != nil && f.Changed {
		a.v.Set(config.KeyInMemory, a.inMemory)
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
	if cfg.File != "" {
		a.log.Debug("config loaded", "file", cfg.File)
	}
	return nil
}

// openStore opens the configured vault.
func (a *app) openStore() (*vault.Store, error) {
	s, err := vault.New(a.cfg.Vault(a.log))
	if err != nil {
		return nil, fmt.Errorf("opening vault: %w", err)
	}
	return s, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cardvault version",
		Args:  cobra.NoArgs,
		// Skip config loading so version works with a broken config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardvault v%s\n", server.Version)
		},
	}
}
