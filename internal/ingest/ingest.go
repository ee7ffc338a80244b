// Package ingest loads canonical catalog entries into the vault. Every card
// goes through vault.CardWriter, so the search index is maintained by the
// same write path as any other card mutation.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// DefaultBatchSize is the number of cards upserted per transaction.
const DefaultBatchSize = 1000

// Stats summarises one import.
type Stats struct {
	Sets    int    `json:"sets"`
	Cards   int    `json:"cards"`
	Version string `json:"version,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Adapter imports a catalog's entries from a data file.
type Adapter interface {
	Import(ctx context.Context, source string) (Stats, error)
}

// Options configures adapters created by AdapterFor.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
}

// AdapterFor returns the adapter for the catalog's source type. Source types
// without an adapter yield a vault not-implemented error.
func AdapterFor(store *vault.Store, cat *vault.Catalog, opts Options) (Adapter, error) {
	switch cat.SourceType {
	case vault.SourceMTGJSON:
		return NewMTGJSONAdapter(store, cat, opts), nil
	case vault.SourceAPI:
		return nil, vault.NotImplemented("source_type", "api adapter is not available")
	case vault.SourceCustom:
		return nil, vault.NotImplemented("source_type", "custom adapter is not available")
	default:
		return nil, fmt.Errorf("ingest: unknown catalog source_type %q", cat.SourceType)
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
