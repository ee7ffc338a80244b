package vault

import (
	"context"
	"database/sql"
	"fmt"
)

// ─── Collections ─────────────────────────────────────────────────────────────

const collectionColumns = `id, name, description, item_type, catalog_id, created_at, updated_at`

// CreateCollection validates and persists a collection. Each catalog backs at
// most one collection.
func (s *Store) CreateCollection(ctx context.Context, p NewCollection) (*Collection, error) {
	id := newID(p.ID)

	v := &validator{}
	v.required("name", p.Name)
	v.required("item_type", p.ItemType)
	v.required("catalog_id", p.CatalogID)
	if err := v.err(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := rowExists(ctx, tx, "collections", id)
		if err != nil {
			return fmt.Errorf("vault: check collection id: %w", err)
		}
		if taken {
			return newError(KindUniqueness, "id", "has already been taken")
		}

		found, err := rowExists(ctx, tx, "catalogs", p.CatalogID)
		if err != nil {
			return fmt.Errorf("vault: resolve catalog: %w", err)
		}
		if !found {
			return newError(KindReferential, "catalog_id", "must exist")
		}

		linked, err := exists(ctx, tx, `SELECT 1 FROM collections WHERE catalog_id = ?`, p.CatalogID)
		if err != nil {
			return fmt.Errorf("vault: check catalog link: %w", err)
		}
		if linked {
			return newError(KindUniqueness, "catalog_id", "has already been taken")
		}

		if _, err := s.execHook(ctx, tx,
			`INSERT INTO collections (id, name, description, item_type, catalog_id) VALUES (?, ?, ?, ?, ?)`,
			id, p.Name, nullableString(p.Description), p.ItemType, p.CatalogID,
		); err != nil {
			return mapConstraint(err, "catalog_id")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCollection(ctx, id)
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, id string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	c, err := scanCollection(row)
	if isNoRows(err) {
		return nil, notFound("collection", id)
	}
	return c, err
}

// CollectionForCatalog returns the collection backed by catalogID.
func (s *Store) CollectionForCatalog(ctx context.Context, catalogID string) (*Collection, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE catalog_id = ?`, catalogID)
	c, err := scanCollection(row)
	if isNoRows(err) {
		return nil, notFound("collection", catalogID)
	}
	return c, err
}

// ListCollections returns all collections ordered by name.
func (s *Store) ListCollections(ctx context.Context) ([]Collection, error) {
	return s.queryCollections(ctx, s.db, `SELECT `+collectionColumns+` FROM collections ORDER BY name, id`)
}

// UpdateCollection partially updates a collection's name and description.
func (s *Store) UpdateCollection(ctx context.Context, id string, p CollectionUpdate) (*Collection, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
		cur, err := scanCollection(row)
		if isNoRows(err) {
			return notFound("collection", id)
		}
		if err != nil {
			return err
		}

		name := cur.Name
		if p.Name != nil {
			name = *p.Name
		}
		desc := derefString(cur.Description)
		if p.Description != nil {
			desc = *p.Description
		}
		v := &validator{}
		v.required("name", name)
		if err := v.err(); err != nil {
			return err
		}

		_, err = s.execHook(ctx, tx,
			`UPDATE collections SET name = ?, description = ?, updated_at = datetime('now') WHERE id = ?`,
			name, nullableString(desc), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetCollection(ctx, id)
}

// DeleteCollection removes a collection together with its storage
// attachments, its items and their detail records.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		found, err := rowExists(ctx, tx, "collections", id)
		if err != nil {
			return fmt.Errorf("vault: delete collection: %w", err)
		}
		if !found {
			return notFound("collection", id)
		}

		items, err := s.queryItems(ctx, tx, `SELECT `+itemColumns+` FROM items WHERE collection_id = ?`, id)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := s.deleteItemTx(ctx, tx, it); err != nil {
				return err
			}
		}

		if _, err := s.execHook(ctx, tx, `DELETE FROM collection_storage_units WHERE collection_id = ?`, id); err != nil {
			return fmt.Errorf("vault: delete collection attachments: %w", err)
		}
		if _, err := s.execHook(ctx, tx, `DELETE FROM collections WHERE id = ?`, id); err != nil {
			return fmt.Errorf("vault: delete collection: %w", err)
		}
		return nil
	})
}

func (s *Store) queryCollections(ctx context.Context, q querier, query string, args ...any) ([]Collection, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vault: query collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCollection(row rowScan) (*Collection, error) {
	var c Collection
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ItemType, &c.CatalogID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
