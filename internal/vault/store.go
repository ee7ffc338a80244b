// Package vault is the persistent entity store for a card collection.
//
// It keeps catalogs, collections, nested storage units, items and their
// per-type detail records in SQLite, and maintains an FTS5 trigram index over
// catalog card names. Every rule that spans tables (storage scope, detail
// ownership, acyclic storage trees) is checked inside an immediate
// transaction before anything is written.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFileName is the database file created under Config.DataDir.
const DBFileName = "cardvault.db"

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir          string
	InMemory         bool
	MaxSearchResults int
	Logger           *slog.Logger
}

// DefaultConfig returns the default configuration for the store.
func DefaultConfig() Config {
	home, _ := homedir.Dir()
	return Config{
		DataDir:          filepath.Join(home, ".cardvault"),
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the entity store backed by SQLite + FTS5.
type Store struct {
	db    *sql.DB
	cfg   Config
	log   *slog.Logger
	kinds *Registry
	hooks storeHooks
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	execer
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type storeHooks struct {
	exec    func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error)
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
			return db.ExecContext(ctx, query, args...)
		},
		beginTx: func(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
			return db.BeginTx(ctx, nil)
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

func (s *Store) execHook(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(ctx, db, query, args...)
	}
	return db.ExecContext(ctx, query, args...)
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (or creates) the store described by cfg and runs migrations.
//
// Connections are opened with _txlock=immediate, so every write transaction
// takes the database write lock at BEGIN. Check-then-write sequences inside a
// transaction are therefore serialised against other writers.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var dsn string
	if cfg.InMemory {
		dsn = fmt.Sprintf("file:cardvault_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
			ulid.Make().String())
	} else {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("vault: create data dir: %w", err)
		}
		dsn = "file:" + filepath.Join(cfg.DataDir, DBFileName) +
			"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	}

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vault: open database: %w", err)
	}
	if cfg.InMemory {
		// Shared-cache memory databases report table locks instead of waiting
		// on busy_timeout; a single connection keeps writers queued.
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:    db,
		cfg:   cfg,
		log:   logger,
		kinds: DefaultRegistry(),
		hooks: defaultStoreHooks(),
	}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vault: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Registry returns the item-kind registry used to resolve references.
func (s *Store) Registry() *Registry {
	return s.kinds
}

// withTx runs fn inside one transaction. Nothing fn wrote survives an error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("vault: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := s.commitHook(tx); err != nil {
		return fmt.Errorf("vault: commit: %w", err)
	}
	return nil
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS catalogs (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			source_type   TEXT NOT NULL,
			source_config TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS collections (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			item_type   TEXT NOT NULL,
			catalog_id  TEXT NOT NULL,
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at  TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (catalog_id) REFERENCES catalogs(id) ON DELETE RESTRICT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_collections_catalog ON collections(catalog_id);

		CREATE TABLE IF NOT EXISTS storage_units (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			unit_type  TEXT NOT NULL,
			notes      TEXT,
			parent_id  TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (parent_id) REFERENCES storage_units(id) ON DELETE RESTRICT
		);

		CREATE INDEX IF NOT EXISTS idx_storage_units_parent ON storage_units(parent_id);

		CREATE TABLE IF NOT EXISTS collection_storage_units (
			id              TEXT PRIMARY KEY,
			collection_id   TEXT NOT NULL,
			storage_unit_id TEXT NOT NULL,
			created_at      TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (collection_id)   REFERENCES collections(id)   ON DELETE CASCADE,
			FOREIGN KEY (storage_unit_id) REFERENCES storage_units(id) ON DELETE CASCADE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_csu_on_collection_and_storage_unit
			ON collection_storage_units(collection_id, storage_unit_id);
		CREATE INDEX IF NOT EXISTS idx_csu_storage_unit ON collection_storage_units(storage_unit_id);

		CREATE TABLE IF NOT EXISTS mtg_sets (
			code         TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			release_date TEXT
		);

		CREATE TABLE IF NOT EXISTS mtg_cards (
			row_id           INTEGER PRIMARY KEY AUTOINCREMENT,
			id               TEXT    NOT NULL UNIQUE,
			name             TEXT    NOT NULL,
			name_folded      TEXT    NOT NULL DEFAULT '',
			set_code         TEXT,
			mana_cost        TEXT,
			type_line        TEXT,
			rarity           TEXT,
			collector_number TEXT,
			created_at       TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at       TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (set_code) REFERENCES mtg_sets(code)
		);

		CREATE INDEX IF NOT EXISTS idx_mtg_cards_set ON mtg_cards(set_code);

		CREATE VIRTUAL TABLE IF NOT EXISTS mtg_cards_fts USING fts5(
			id UNINDEXED,
			name,
			tokenize = 'trigram'
		);

		CREATE TABLE IF NOT EXISTS mtg_card_item_details (
			id              TEXT PRIMARY KEY,
			condition       TEXT    NOT NULL DEFAULT 'NM',
			finish          TEXT    NOT NULL DEFAULT 'nonfoil',
			language        TEXT    NOT NULL DEFAULT 'EN',
			signed          INTEGER NOT NULL DEFAULT 0,
			altered         INTEGER NOT NULL DEFAULT 0,
			graded          INTEGER NOT NULL DEFAULT 0,
			grading_service TEXT,
			grade           TEXT,
			created_at      TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at      TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS items (
			id                 TEXT    PRIMARY KEY,
			collection_id      TEXT    NOT NULL,
			storage_unit_id    TEXT,
			catalog_entry_type TEXT    NOT NULL,
			catalog_entry_id   TEXT    NOT NULL,
			detail_type        TEXT    NOT NULL,
			detail_id          TEXT    NOT NULL,
			quantity           INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
			acquisition_price  TEXT,
			acquisition_date   TEXT,
			notes              TEXT,
			created_at         TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at         TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (collection_id)   REFERENCES collections(id),
			FOREIGN KEY (storage_unit_id) REFERENCES storage_units(id)
		);

		CREATE INDEX IF NOT EXISTS idx_items_collection    ON items(collection_id);
		CREATE INDEX IF NOT EXISTS idx_items_storage_unit  ON items(storage_unit_id);
		CREATE INDEX IF NOT EXISTS idx_items_catalog_entry ON items(catalog_entry_type, catalog_entry_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_items_detail ON items(detail_type, detail_id);
	`
	if _, err := s.execHook(ctx, s.db, schema); err != nil {
		return err
	}
	if err := s.ensureColumn(ctx, "mtg_cards", "name_folded", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	return s.backfillFoldedNames(ctx)
}

// ensureColumn adds a column to tables created before the column existed.
func (s *Store) ensureColumn(ctx context.Context, table, column, decl string) error {
	found, err := exists(ctx, s.db, `SELECT 1 FROM pragma_table_info(?) WHERE name = ?`, table, column)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if found {
		return nil
	}
	if _, err := s.execHook(ctx, s.db, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, decl)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

// backfillFoldedNames fills name_folded for cards written before the column
// existed. Folding happens in Go because SQLite's lower() is ASCII-only.
func (s *Store) backfillFoldedNames(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT row_id, name FROM mtg_cards WHERE name_folded = ''`)
		if err != nil {
			return fmt.Errorf("scan unfolded names: %w", err)
		}
		type pending struct {
			rowID int64
			name  string
		}
		var todo []pending
		for rows.Next() {
			var p pending
			if err := rows.Scan(&p.rowID, &p.name); err != nil {
				_ = rows.Close()
				return err
			}
			todo = append(todo, p)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
		for _, p := range todo {
			if _, err := s.execHook(ctx, tx,
				`UPDATE mtg_cards SET name_folded = ? WHERE row_id = ?`, foldName(p.name), p.rowID,
			); err != nil {
				return fmt.Errorf("fold name of card row %d: %w", p.rowID, err)
			}
		}
		return nil
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// newID returns id unchanged when set, otherwise a fresh UUID.
func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// exists reports whether query (a SELECT 1 ...) returns a row.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
