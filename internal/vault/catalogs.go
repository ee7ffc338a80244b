package vault

import (
	"context"
	"database/sql"
	"fmt"

	json "github.com/goccy/go-json"
)

// ─── Catalogs ────────────────────────────────────────────────────────────────

// CreateCatalog validates and persists a new catalog.
func (s *Store) CreateCatalog(ctx context.Context, p NewCatalog) (*Catalog, error) {
	id := newID(p.ID)

	v := &validator{}
	v.required("name", p.Name)
	if p.SourceType == "" {
		v.add("source_type", "can't be blank")
	} else {
		v.oneOf("source_type", string(p.SourceType), SourceTypes)
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	cfg, err := encodeSourceConfig(p.SourceConfig)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := rowExists(ctx, tx, "catalogs", id)
		if err != nil {
			return fmt.Errorf("vault: check catalog id: %w", err)
		}
		if taken {
			return newError(KindUniqueness, "id", "has already been taken")
		}
		if _, err := s.execHook(ctx, tx,
			`INSERT INTO catalogs (id, name, source_type, source_config) VALUES (?, ?, ?, ?)`,
			id, p.Name, string(p.SourceType), cfg,
		); err != nil {
			return mapConstraint(err, "id")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCatalog(ctx, id)
}

// GetCatalog retrieves a catalog by ID.
func (s *Store) GetCatalog(ctx context.Context, id string) (*Catalog, error) {
	return getCatalog(ctx, s.db, id)
}

func getCatalog(ctx context.Context, q querier, id string) (*Catalog, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, source_type, source_config, created_at, updated_at FROM catalogs WHERE id = ?`, id)
	c, err := scanCatalog(row)
	if isNoRows(err) {
		return nil, notFound("catalog", id)
	}
	return c, err
}

// FindCatalogByName returns the first catalog with the given name.
func (s *Store) FindCatalogByName(ctx context.Context, name string) (*Catalog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, source_type, source_config, created_at, updated_at
		 FROM catalogs WHERE name = ? ORDER BY created_at LIMIT 1`, name)
	c, err := scanCatalog(row)
	if isNoRows(err) {
		return nil, notFound("catalog", name)
	}
	return c, err
}

// ListCatalogs returns all catalogs ordered by name.
func (s *Store) ListCatalogs(ctx context.Context) ([]Catalog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source_type, source_config, created_at, updated_at FROM catalogs ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("vault: list catalogs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Catalog
	for rows.Next() {
		c, err := scanCatalog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateCatalog partially updates a catalog. A non-nil SourceConfig replaces
// the stored one.
func (s *Store) UpdateCatalog(ctx context.Context, id string, p CatalogUpdate) (*Catalog, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getCatalog(ctx, tx, id)
		if err != nil {
			return err
		}
		name := cur.Name
		if p.Name != nil {
			name = *p.Name
		}
		v := &validator{}
		v.required("name", name)
		if err := v.err(); err != nil {
			return err
		}

		srcCfg := cur.SourceConfig
		if p.SourceConfig != nil {
			srcCfg = p.SourceConfig
		}
		encoded, err := encodeSourceConfig(srcCfg)
		if err != nil {
			return err
		}

		_, err = s.execHook(ctx, tx,
			`UPDATE catalogs SET name = ?, source_config = ?, updated_at = datetime('now') WHERE id = ?`,
			name, encoded, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetCatalog(ctx, id)
}

// DeleteCatalog removes a catalog. It is refused while a collection
// references the catalog.
func (s *Store) DeleteCatalog(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := rowExists(ctx, tx, "catalogs", id)
		if err != nil {
			return fmt.Errorf("vault: delete catalog: %w", err)
		}
		if !found {
			return notFound("catalog", id)
		}
		linked, err := exists(ctx, tx, `SELECT 1 FROM collections WHERE catalog_id = ?`, id)
		if err != nil {
			return fmt.Errorf("vault: delete catalog: %w", err)
		}
		if linked {
			return newError(KindReferential, "collection", "cannot delete record because a dependent collection exists")
		}
		_, err = s.execHook(ctx, tx, `DELETE FROM catalogs WHERE id = ?`, id)
		return mapConstraint(err, "collection")
	})
}

type rowScan interface {
	Scan(dest ...any) error
}

func scanCatalog(row rowScan) (*Catalog, error) {
	var c Catalog
	var srcType, srcCfg string
	if err := row.Scan(&c.ID, &c.Name, &srcType, &srcCfg, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.SourceType = SourceType(srcType)
	c.SourceConfig = map[string]any{}
	if srcCfg != "" {
		if err := json.Unmarshal([]byte(srcCfg), &c.SourceConfig); err != nil {
			return nil, fmt.Errorf("vault: decode source_config for catalog %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func encodeSourceConfig(cfg map[string]any) (string, error) {
	if cfg == nil {
		return "{}", nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", newError(KindValidation, "source_config", fmt.Sprintf("is not encodable: %v", err))
	}
	return string(b), nil
}
