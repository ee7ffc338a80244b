package vault

import (
	"context"
	"database/sql"
	"fmt"
)

// ─── Storage units ───────────────────────────────────────────────────────────

const storageUnitColumns = `id, name, unit_type, notes, parent_id, created_at, updated_at`

// CreateStorageUnit validates and persists a storage unit, optionally nested
// under ParentID and attached to CollectionID. A failed attach leaves no unit
// behind.
func (s *Store) CreateStorageUnit(ctx context.Context, p NewStorageUnit) (*StorageUnit, error) {
	id := newID(p.ID)

	v := &validator{}
	v.required("name", p.Name)
	v.required("unit_type", p.UnitType)
	if p.ParentID != "" && p.ParentID == id {
		v.add("parent_id", "cannot reference the unit itself")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := rowExists(ctx, tx, "storage_units", id)
		if err != nil {
			return fmt.Errorf("vault: check storage unit id: %w", err)
		}
		if taken {
			return newError(KindUniqueness, "id", "has already been taken")
		}
		if p.ParentID != "" {
			found, err := rowExists(ctx, tx, "storage_units", p.ParentID)
			if err != nil {
				return fmt.Errorf("vault: resolve parent: %w", err)
			}
			if !found {
				return newError(KindReferential, "parent_id", "must exist")
			}
		}
		if _, err := s.execHook(ctx, tx,
			`INSERT INTO storage_units (id, name, unit_type, notes, parent_id) VALUES (?, ?, ?, ?, ?)`,
			id, p.Name, p.UnitType, nullableString(p.Notes), nullableString(p.ParentID),
		); err != nil {
			return mapConstraint(err, "parent_id")
		}
		if p.CollectionID != "" {
			return s.attachTx(ctx, tx, newID(""), id, p.CollectionID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetStorageUnit(ctx, id)
}

// GetStorageUnit retrieves a storage unit by ID.
func (s *Store) GetStorageUnit(ctx context.Context, id string) (*StorageUnit, error) {
	return getStorageUnit(ctx, s.db, id)
}

func getStorageUnit(ctx context.Context, q querier, id string) (*StorageUnit, error) {
	row := q.QueryRowContext(ctx, `SELECT `+storageUnitColumns+` FROM storage_units WHERE id = ?`, id)
	u, err := scanStorageUnit(row)
	if isNoRows(err) {
		return nil, notFound("storage_unit", id)
	}
	return u, err
}

// UpdateStorageUnit partially updates name, unit type and notes.
func (s *Store) UpdateStorageUnit(ctx context.Context, id string, p StorageUnitUpdate) (*StorageUnit, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getStorageUnit(ctx, tx, id)
		if err != nil {
			return err
		}
		name, unitType, notes := cur.Name, cur.UnitType, derefString(cur.Notes)
		if p.Name != nil {
			name = *p.Name
		}
		if p.UnitType != nil {
			unitType = *p.UnitType
		}
		if p.Notes != nil {
			notes = *p.Notes
		}

		v := &validator{}
		v.required("name", name)
		v.required("unit_type", unitType)
		if err := v.err(); err != nil {
			return err
		}

		_, err = s.execHook(ctx, tx,
			`UPDATE storage_units SET name = ?, unit_type = ?, notes = ?, updated_at = datetime('now') WHERE id = ?`,
			name, unitType, nullableString(notes), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetStorageUnit(ctx, id)
}

// Reparent moves unitID under parentID, or to the root when parentID is
// empty. A unit may never become its own ancestor.
func (s *Store) Reparent(ctx context.Context, unitID, parentID string) (*StorageUnit, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getStorageUnit(ctx, tx, unitID); err != nil {
			return err
		}
		if parentID != "" {
			if parentID == unitID {
				return newError(KindValidation, "parent_id", "cannot reference the unit itself")
			}
			found, err := rowExists(ctx, tx, "storage_units", parentID)
			if err != nil {
				return fmt.Errorf("vault: resolve parent: %w", err)
			}
			if !found {
				return newError(KindReferential, "parent_id", "must exist")
			}

			chain, err := ancestorIDs(ctx, tx, parentID)
			if err != nil {
				return err
			}
			for _, a := range chain {
				if a == unitID {
					return newError(KindValidation, "parent_id",
						fmt.Sprintf("%q is a descendant of %q; the move would create a cycle", parentID, unitID))
				}
			}
		}
		_, err := s.execHook(ctx, tx,
			`UPDATE storage_units SET parent_id = ?, updated_at = datetime('now') WHERE id = ?`,
			nullableString(parentID), unitID)
		return mapConstraint(err, "parent_id")
	})
	if err != nil {
		return nil, err
	}
	return s.GetStorageUnit(ctx, unitID)
}

// DeleteStorageUnit removes a storage unit and its collection attachments.
// It fails with HasChildren while child units exist, and with a referential
// error while items are stored in it. The checks and the delete share one
// immediate transaction, so a concurrent child insert cannot slip between
// them.
func (s *Store) DeleteStorageUnit(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getStorageUnit(ctx, tx, id); err != nil {
			return err
		}

		var children int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM storage_units WHERE parent_id = ?`, id,
		).Scan(&children); err != nil {
			return fmt.Errorf("vault: count children: %w", err)
		}
		if children > 0 {
			return newError(KindHasChildren, "children",
				fmt.Sprintf("cannot delete record because %d dependent storage unit(s) exist", children))
		}

		stored, err := exists(ctx, tx, `SELECT 1 FROM items WHERE storage_unit_id = ?`, id)
		if err != nil {
			return fmt.Errorf("vault: check stored items: %w", err)
		}
		if stored {
			return newError(KindReferential, "items", "cannot delete record because items are stored in it")
		}

		if _, err := s.execHook(ctx, tx, `DELETE FROM collection_storage_units WHERE storage_unit_id = ?`, id); err != nil {
			return fmt.Errorf("vault: delete attachments: %w", err)
		}
		if _, err := s.execHook(ctx, tx, `DELETE FROM storage_units WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return newError(KindHasChildren, "children", "cannot delete record because dependent storage units exist")
			}
			return fmt.Errorf("vault: delete storage unit: %w", err)
		}
		return nil
	})
}

// ─── Hierarchy queries ───────────────────────────────────────────────────────

// Children lists the direct children of a storage unit (unordered by
// contract; returned by name for stable output).
func (s *Store) Children(ctx context.Context, id string) ([]StorageUnit, error) {
	return s.queryStorageUnits(ctx, s.db,
		`SELECT `+storageUnitColumns+` FROM storage_units WHERE parent_id = ? ORDER BY name, id`, id)
}

// Roots lists storage units without a parent.
func (s *Store) Roots(ctx context.Context) ([]StorageUnit, error) {
	return s.queryStorageUnits(ctx, s.db,
		`SELECT `+storageUnitColumns+` FROM storage_units WHERE parent_id IS NULL ORDER BY name, id`)
}

// Ancestors returns the chain from the unit's parent up to its root.
func (s *Store) Ancestors(ctx context.Context, id string) ([]StorageUnit, error) {
	if _, err := s.GetStorageUnit(ctx, id); err != nil {
		return nil, err
	}
	return s.queryStorageUnits(ctx, s.db, `
		WITH RECURSIVE chain(id, depth) AS (
			SELECT parent_id, 1 FROM storage_units WHERE id = ? AND parent_id IS NOT NULL
			UNION ALL
			SELECT su.parent_id, chain.depth + 1
			FROM storage_units su JOIN chain ON su.id = chain.id
			WHERE su.parent_id IS NOT NULL
		)
		SELECT su.id, su.name, su.unit_type, su.notes, su.parent_id, su.created_at, su.updated_at
		FROM chain JOIN storage_units su ON su.id = chain.id
		ORDER BY chain.depth`, id)
}

// ancestorIDs returns id followed by every ancestor of id.
func ancestorIDs(ctx context.Context, q querier, id string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		WITH RECURSIVE chain(id) AS (
			SELECT ?
			UNION
			SELECT su.parent_id FROM storage_units su JOIN chain ON su.id = chain.id
			WHERE su.parent_id IS NOT NULL
		)
		SELECT id FROM chain`, id)
	if err != nil {
		return nil, fmt.Errorf("vault: walk ancestors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		ids = append(ids, a)
	}
	return ids, rows.Err()
}

// ─── Collection attachments ──────────────────────────────────────────────────

// Attach associates a storage unit with a collection. Attaching the same
// pair twice fails with a uniqueness violation; the unit may be attached to
// any number of distinct collections.
func (s *Store) Attach(ctx context.Context, unitID, collectionID string) (*CollectionStorageUnit, error) {
	id := newID("")
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.attachTx(ctx, tx, id, unitID, collectionID)
	})
	if err != nil {
		return nil, err
	}

	var csu CollectionStorageUnit
	if err := s.db.QueryRowContext(ctx,
		`SELECT id, collection_id, storage_unit_id, created_at FROM collection_storage_units WHERE id = ?`, id,
	).Scan(&csu.ID, &csu.CollectionID, &csu.StorageUnitID, &csu.CreatedAt); err != nil {
		return nil, fmt.Errorf("vault: read attachment: %w", err)
	}
	return &csu, nil
}

func (s *Store) attachTx(ctx context.Context, tx *sql.Tx, id, unitID, collectionID string) error {
	v := &validator{}
	refs := []struct{ field, table, id string }{
		{"storage_unit_id", "storage_units", unitID},
		{"collection_id", "collections", collectionID},
	}
	for _, ref := range refs {
		found, err := rowExists(ctx, tx, ref.table, ref.id)
		if err != nil {
			return fmt.Errorf("vault: resolve %s: %w", ref.field, err)
		}
		if !found {
			v.add(ref.field, "must exist")
		}
	}
	if len(v.fields) > 0 {
		return &Error{Kind: KindReferential, Fields: v.fields}
	}

	dup, err := exists(ctx, tx,
		`SELECT 1 FROM collection_storage_units WHERE collection_id = ? AND storage_unit_id = ?`,
		collectionID, unitID)
	if err != nil {
		return fmt.Errorf("vault: check attachment: %w", err)
	}
	if dup {
		return newError(KindUniqueness, "storage_unit_id", "is already attached to this collection")
	}

	if _, err := s.execHook(ctx, tx,
		`INSERT INTO collection_storage_units (id, collection_id, storage_unit_id) VALUES (?, ?, ?)`,
		id, collectionID, unitID,
	); err != nil {
		return mapConstraint(err, "storage_unit_id")
	}
	return nil
}

// Detach removes a storage unit from a collection. It is refused while items
// of that collection are stored in the unit, since they would fall out of
// scope.
func (s *Store) Detach(ctx context.Context, unitID, collectionID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		attached, err := exists(ctx, tx,
			`SELECT 1 FROM collection_storage_units WHERE collection_id = ? AND storage_unit_id = ?`,
			collectionID, unitID)
		if err != nil {
			return fmt.Errorf("vault: check attachment: %w", err)
		}
		if !attached {
			return newError(KindNotFound, "storage_unit_id", "is not attached to this collection")
		}

		stored, err := exists(ctx, tx,
			`SELECT 1 FROM items WHERE collection_id = ? AND storage_unit_id = ?`, collectionID, unitID)
		if err != nil {
			return fmt.Errorf("vault: check stored items: %w", err)
		}
		if stored {
			return newError(KindStorageScope, "storage_unit_id", "still holds items of this collection")
		}

		_, err = s.execHook(ctx, tx,
			`DELETE FROM collection_storage_units WHERE collection_id = ? AND storage_unit_id = ?`,
			collectionID, unitID)
		return err
	})
}

// CollectionsForUnit lists every collection a storage unit is attached to.
func (s *Store) CollectionsForUnit(ctx context.Context, unitID string) ([]Collection, error) {
	return s.queryCollections(ctx, s.db, `
		SELECT c.id, c.name, c.description, c.item_type, c.catalog_id, c.created_at, c.updated_at
		FROM collection_storage_units csu
		JOIN collections c ON c.id = csu.collection_id
		WHERE csu.storage_unit_id = ?
		ORDER BY c.name, c.id`, unitID)
}

// StorageUnitsForCollection lists every storage unit attached to a collection.
func (s *Store) StorageUnitsForCollection(ctx context.Context, collectionID string) ([]StorageUnit, error) {
	return s.queryStorageUnits(ctx, s.db, `
		SELECT su.id, su.name, su.unit_type, su.notes, su.parent_id, su.created_at, su.updated_at
		FROM collection_storage_units csu
		JOIN storage_units su ON su.id = csu.storage_unit_id
		WHERE csu.collection_id = ?
		ORDER BY su.name, su.id`, collectionID)
}

func (s *Store) collectionIDsForUnit(ctx context.Context, q querier, unitID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT collection_id FROM collection_storage_units WHERE storage_unit_id = ?`, unitID)
	if err != nil {
		return nil, fmt.Errorf("vault: attached collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) queryStorageUnits(ctx context.Context, q querier, query string, args ...any) ([]StorageUnit, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vault: query storage units: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StorageUnit
	for rows.Next() {
		u, err := scanStorageUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func scanStorageUnit(row rowScan) (*StorageUnit, error) {
	var u StorageUnit
	if err := row.Scan(&u.ID, &u.Name, &u.UnitType, &u.Notes, &u.ParentID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
