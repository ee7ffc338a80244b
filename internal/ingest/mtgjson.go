package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	_ "modernc.org/sqlite"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// MTGJSONAdapter imports an MTGJSON AllPrintings SQLite snapshot. It reads
// the sets, cards and meta tables and records the snapshot version in the
// catalog's source_config.
type MTGJSONAdapter struct {
	store   *vault.Store
	catalog *vault.Catalog
	batch   int
	log     *slog.Logger
}

// NewMTGJSONAdapter creates an adapter writing into store for cat.
func NewMTGJSONAdapter(store *vault.Store, cat *vault.Catalog, opts Options) *MTGJSONAdapter {
	opts = opts.withDefaults()
	return &MTGJSONAdapter{
		store:   store,
		catalog: cat,
		batch:   opts.BatchSize,
		log:     opts.Logger.With("catalog", cat.Name, "adapter", "mtgjson"),
	}
}

// Import reads the snapshot at path. Sets are written first, then cards in
// batches of the configured size; each batch is one transaction.
func (a *MTGJSONAdapter) Import(ctx context.Context, path string) (Stats, error) {
	var stats Stats
	if _, err := os.Stat(path); err != nil {
		return stats, fmt.Errorf("ingest: open snapshot: %w", err)
	}

	src, err := sql.Open("sqlite", "file:"+(&url.URL{Path: path}).EscapedPath()+"?mode=ro")
	if err != nil {
		return stats, fmt.Errorf("ingest: open snapshot: %w", err)
	}
	defer func() { _ = src.Close() }()

	stats.Version, stats.Date = readMeta(ctx, src)

	stats.Sets, err = a.importSets(ctx, src)
	if err != nil {
		return stats, err
	}
	stats.Cards, err = a.importCards(ctx, src)
	if err != nil {
		return stats, err
	}

	cfg := map[string]any{}
	for k, v := range a.catalog.SourceConfig {
		cfg[k] = v
	}
	cfg["version"] = nullable(stats.Version)
	cfg["last_updated"] = nullable(stats.Date)
	updated, err := a.store.UpdateCatalog(ctx, a.catalog.ID, vault.CatalogUpdate{SourceConfig: cfg})
	if err != nil {
		return stats, fmt.Errorf("ingest: record snapshot version: %w", err)
	}
	a.catalog = updated

	a.log.Info("import complete", "sets", stats.Sets, "cards", stats.Cards, "version", stats.Version)
	return stats, nil
}

func (a *MTGJSONAdapter) importSets(ctx context.Context, src *sql.DB) (int, error) {
	rows, err := src.QueryContext(ctx,
		`SELECT code, name, COALESCE(releaseDate, '') FROM sets ORDER BY code`)
	if err != nil {
		return 0, fmt.Errorf("ingest: read sets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sets []vault.MTGSet
	for rows.Next() {
		var s vault.MTGSet
		if err := rows.Scan(&s.Code, &s.Name, &s.ReleaseDate); err != nil {
			return 0, fmt.Errorf("ingest: scan set: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("ingest: read sets: %w", err)
	}

	err = a.store.WithCardWriter(ctx, func(w *vault.CardWriter) error {
		for _, s := range sets {
			if err := w.UpsertSet(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ingest: write sets: %w", err)
	}
	a.log.Debug("sets imported", "count", len(sets))
	return len(sets), nil
}

func (a *MTGJSONAdapter) importCards(ctx context.Context, src *sql.DB) (int, error) {
	rows, err := src.QueryContext(ctx, `
		SELECT uuid, name, COALESCE(setCode, ''), COALESCE(manaCost, ''), COALESCE(type, ''),
		       COALESCE(rarity, ''), COALESCE(number, '')
		FROM cards ORDER BY uuid`)
	if err != nil {
		return 0, fmt.Errorf("ingest: read cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	total := 0
	batch := make([]vault.MTGCard, 0, a.batch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := a.store.WithCardWriter(ctx, func(w *vault.CardWriter) error {
			for _, c := range batch {
				if _, err := w.UpsertCard(ctx, c); err != nil {
					return fmt.Errorf("card %s: %w", c.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("ingest: write cards: %w", err)
		}
		total += len(batch)
		a.log.Debug("card batch imported", "batch", len(batch), "total", total)
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var c vault.MTGCard
		if err := rows.Scan(&c.ID, &c.Name, &c.SetCode, &c.ManaCost, &c.TypeLine, &c.Rarity, &c.CollectorNumber); err != nil {
			return total, fmt.Errorf("ingest: scan card: %w", err)
		}
		batch = append(batch, c)
		if len(batch) >= a.batch {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("ingest: read cards: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// readMeta returns the snapshot version and date. Snapshots without a meta
// table yield empty values.
func readMeta(ctx context.Context, src *sql.DB) (version, date string) {
	err := src.QueryRowContext(ctx,
		`SELECT COALESCE(version, ''), COALESCE(date, '') FROM meta LIMIT 1`,
	).Scan(&version, &date)
	if err != nil {
		return "", ""
	}
	return version, date
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
