// Package config loads cardvault settings from defaults, an optional YAML
// file and CARDVAULT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/HendryAvila/cardvault/internal/fetch"
	"github.com/HendryAvila/cardvault/internal/ingest"
	"github.com/HendryAvila/cardvault/internal/vault"
)

const (
	// FileName is the config file looked up in the home directory.
	FileName = ".cardvault"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CARDVAULT"
)

// Keys.
const (
	KeyDataDir          = "data_dir"
	KeyInMemory         = "in_memory"
	KeyMaxSearchResults = "max_search_results"
	KeyMTGJSONURL       = "mtgjson_url"
	KeyDownloadTimeout  = "download_timeout"
	KeyLogLevel         = "log_level"
	KeyImportBatchSize  = "import_batch_size"
)

// Config is the resolved application configuration.
type Config struct {
	DataDir          string        `mapstructure:"data_dir"`
	InMemory         bool          `mapstructure:"in_memory"`
	MaxSearchResults int           `mapstructure:"max_search_results"`
	MTGJSONURL       string        `mapstructure:"mtgjson_url"`
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"`
	LogLevel         string        `mapstructure:"log_level"`
	ImportBatchSize  int           `mapstructure:"import_batch_size"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	def := vault.DefaultConfig()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyInMemory, false)
	v.SetDefault(KeyMaxSearchResults, def.MaxSearchResults)
	v.SetDefault(KeyMTGJSONURL, fetch.DefaultSource)
	v.SetDefault(KeyDownloadTimeout, fetch.DefaultTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyImportBatchSize, ingest.DefaultBatchSize)
}

// Load reads configuration into v. When file is empty, $HOME/.cardvault.yaml
// is used if it exists; an explicit file must exist.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if file != "" {
		expanded, err := homedir.Expand(file)
		if err != nil {
			return Config{}, fmt.Errorf("config: expand %s: %w", file, err)
		}
		v.SetConfigFile(expanded)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return Config{}, fmt.Errorf("config: find home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(FileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if cfg.DataDir != "" {
		dir, err := homedir.Expand(cfg.DataDir)
		if err != nil {
			return Config{}, fmt.Errorf("config: expand data_dir: %w", err)
		}
		cfg.DataDir = filepath.Clean(dir)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that have no usable fallback.
func (c Config) Validate() error {
	var errs []error
	if !c.InMemory && c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required unless in_memory is set"))
	}
	if c.MaxSearchResults <= 0 {
		errs = append(errs, fmt.Errorf("max_search_results must be positive, got %d", c.MaxSearchResults))
	}
	if c.ImportBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("import_batch_size must be positive, got %d", c.ImportBatchSize))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Vault returns the store configuration.
func (c Config) Vault(logger *slog.Logger) vault.Config {
	return vault.Config{
		DataDir:          c.DataDir,
		InMemory:         c.InMemory,
		MaxSearchResults: c.MaxSearchResults,
		Logger:           logger,
	}
}

// Fetch returns the download configuration.
func (c Config) Fetch(logger *slog.Logger, userAgent string) fetch.Config {
	return fetch.Config{
		DefaultSource: c.MTGJSONURL,
		Timeout:       c.DownloadTimeout,
		UserAgent:     userAgent,
		Logger:        logger,
	}
}

// Ingest returns the import options.
func (c Config) Ingest(logger *slog.Logger) ingest.Options {
	return ingest.Options{BatchSize: c.ImportBatchSize, Logger: logger}
}

// SnapshotPath is where fetched catalog snapshots are stored by default.
func (c Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "AllPrintings.sqlite")
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s, err)
	}
	return l, nil
}
