package vault

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Items ───────────────────────────────────────────────────────────────────

const itemColumns = `id, collection_id, storage_unit_id, catalog_entry_type, catalog_entry_id,
	detail_type, detail_id, quantity, acquisition_price, acquisition_date, notes, created_at, updated_at`

const dateLayout = "2006-01-02"

// AddItem validates and persists an item that references an existing detail
// record.
func (s *Store) AddItem(ctx context.Context, p NewItem) (*Item, error) {
	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = s.addItemTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// AddMTGCardItem creates the detail record and the item that owns it in one
// transaction. p.Detail is ignored.
func (s *Store) AddMTGCardItem(ctx context.Context, p NewItem, d NewMTGCardDetail) (*Item, error) {
	var id string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		detailID, err := s.createDetailTx(ctx, tx, d)
		if err != nil {
			return err
		}
		p.Detail = Ref{Type: DetailMTGCard, ID: detailID}
		id, err = s.addItemTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Store) addItemTx(ctx context.Context, tx *sql.Tx, p NewItem) (string, error) {
	id := newID(p.ID)
	qty := 1
	if p.Quantity != nil {
		qty = *p.Quantity
	}

	v := &validator{}
	v.required("collection_id", p.CollectionID)
	v.required("catalog_entry_type", p.CatalogEntry.Type)
	v.required("catalog_entry_id", p.CatalogEntry.ID)
	v.required("detail_type", p.Detail.Type)
	v.required("detail_id", p.Detail.ID)
	validateItemValues(v, qty, p.AcquisitionPrice, p.AcquisitionDate)
	if err := v.err(); err != nil {
		return "", err
	}

	taken, err := rowExists(ctx, tx, "items", id)
	if err != nil {
		return "", fmt.Errorf("vault: check item id: %w", err)
	}
	if taken {
		return "", newError(KindUniqueness, "id", "has already been taken")
	}

	if err := s.resolveItem(ctx, tx, itemRefs{
		ID:            id,
		CollectionID:  p.CollectionID,
		StorageUnitID: p.StorageUnitID,
		CatalogEntry:  p.CatalogEntry,
		Detail:        p.Detail,
	}); err != nil {
		return "", err
	}

	if _, err := s.execHook(ctx, tx,
		`INSERT INTO items (id, collection_id, storage_unit_id, catalog_entry_type, catalog_entry_id,
		                    detail_type, detail_id, quantity, acquisition_price, acquisition_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.CollectionID, nullableString(p.StorageUnitID),
		p.CatalogEntry.Type, p.CatalogEntry.ID, p.Detail.Type, p.Detail.ID,
		qty, priceString(p.AcquisitionPrice), nullableString(p.AcquisitionDate), nullableString(p.Notes),
	); err != nil {
		return "", mapConstraint(err, "detail")
	}
	return id, nil
}

// GetItem retrieves an item by ID.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id string) (*Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if isNoRows(err) {
		return nil, notFound("item", id)
	}
	return it, err
}

// UpdateItem partially updates an item and re-runs every reference and
// scope check against the resulting values.
func (s *Store) UpdateItem(ctx context.Context, id string, p ItemUpdate) (*Item, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateItemTx(ctx, tx, id, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

// UpdateMTGCardItem updates an MTG card item and its detail record in one
// transaction. Either both updates persist or neither does.
func (s *Store) UpdateMTGCardItem(ctx context.Context, id string, p ItemUpdate, d MTGCardDetailUpdate) (*Item, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if d != (MTGCardDetailUpdate{}) {
			if it.Detail.Type != DetailMTGCard {
				return newError(KindValidation, "detail_type", fmt.Sprintf("is %q, not %q", it.Detail.Type, DetailMTGCard))
			}
			if err := s.updateDetailTx(ctx, tx, it.Detail.ID, d); err != nil {
				return err
			}
		}
		return s.updateItemTx(ctx, tx, id, p)
	})
	if err != nil {
		return nil, err
	}
	return s.GetItem(ctx, id)
}

func (s *Store) updateItemTx(ctx context.Context, tx *sql.Tx, id string, p ItemUpdate) error {
	it, err := getItem(ctx, tx, id)
	if err != nil {
		return err
	}

	if p.CollectionID != nil {
		it.CollectionID = *p.CollectionID
	}
	if p.StorageUnitID != nil {
		it.StorageUnitID = nullableString(*p.StorageUnitID)
	}
	if p.CatalogEntry != nil {
		it.CatalogEntry = *p.CatalogEntry
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.AcquisitionPrice != nil {
		it.AcquisitionPrice = p.AcquisitionPrice
	}
	if p.AcquisitionDate != nil {
		it.AcquisitionDate = nullableString(*p.AcquisitionDate)
	}
	if p.Notes != nil {
		it.Notes = nullableString(*p.Notes)
	}

	v := &validator{}
	v.required("collection_id", it.CollectionID)
	v.required("catalog_entry_type", it.CatalogEntry.Type)
	v.required("catalog_entry_id", it.CatalogEntry.ID)
	validateItemValues(v, it.Quantity, it.AcquisitionPrice, derefString(it.AcquisitionDate))
	if err := v.err(); err != nil {
		return err
	}

	if err := s.resolveItem(ctx, tx, itemRefs{
		ID:            it.ID,
		CollectionID:  it.CollectionID,
		StorageUnitID: derefString(it.StorageUnitID),
		CatalogEntry:  it.CatalogEntry,
		Detail:        it.Detail,
	}); err != nil {
		return err
	}

	_, err = s.execHook(ctx, tx,
		`UPDATE items
		 SET collection_id = ?, storage_unit_id = ?, catalog_entry_type = ?, catalog_entry_id = ?,
		     quantity = ?, acquisition_price = ?, acquisition_date = ?, notes = ?,
		     updated_at = datetime('now')
		 WHERE id = ?`,
		it.CollectionID, it.StorageUnitID, it.CatalogEntry.Type, it.CatalogEntry.ID,
		it.Quantity, priceString(it.AcquisitionPrice), it.AcquisitionDate, it.Notes, id)
	return mapConstraint(err, "collection_id")
}

// DeleteItem removes an item and the detail record it owns.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		it, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.deleteItemTx(ctx, tx, *it)
	})
}

func (s *Store) deleteItemTx(ctx context.Context, tx *sql.Tx, it Item) error {
	if _, err := s.execHook(ctx, tx, `DELETE FROM items WHERE id = ?`, it.ID); err != nil {
		return fmt.Errorf("vault: delete item %s: %w", it.ID, err)
	}
	table, ok := s.kinds.detailTable(it.Detail.Type)
	if !ok {
		return nil
	}
	if _, err := s.execHook(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), it.Detail.ID); err != nil {
		return fmt.Errorf("vault: delete detail %s: %w", it.Detail, err)
	}
	return nil
}

// ItemsInCollection lists the items of a collection, oldest first.
func (s *Store) ItemsInCollection(ctx context.Context, collectionID string) ([]Item, error) {
	return s.queryItems(ctx, s.db,
		`SELECT `+itemColumns+` FROM items WHERE collection_id = ? ORDER BY created_at, id`, collectionID)
}

// ItemsInStorageUnit lists the items stored directly in a storage unit.
func (s *Store) ItemsInStorageUnit(ctx context.Context, unitID string) ([]Item, error) {
	return s.queryItems(ctx, s.db,
		`SELECT `+itemColumns+` FROM items WHERE storage_unit_id = ? ORDER BY created_at, id`, unitID)
}

// ItemsForCatalogEntry lists the items referencing a catalog entry.
func (s *Store) ItemsForCatalogEntry(ctx context.Context, ref Ref) ([]Item, error) {
	return s.queryItems(ctx, s.db,
		`SELECT `+itemColumns+` FROM items WHERE catalog_entry_type = ? AND catalog_entry_id = ? ORDER BY created_at, id`,
		ref.Type, ref.ID)
}

func (s *Store) queryItems(ctx context.Context, q querier, query string, args ...any) ([]Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vault: query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

func scanItem(row rowScan) (*Item, error) {
	var it Item
	var price *string
	if err := row.Scan(
		&it.ID, &it.CollectionID, &it.StorageUnitID,
		&it.CatalogEntry.Type, &it.CatalogEntry.ID, &it.Detail.Type, &it.Detail.ID,
		&it.Quantity, &price, &it.AcquisitionDate, &it.Notes, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("vault: decode acquisition_price for item %s: %w", it.ID, err)
		}
		it.AcquisitionPrice = &d
	}
	return &it, nil
}

func validateItemValues(v *validator, qty int, price *decimal.Decimal, date string) {
	if qty <= 0 {
		v.add("quantity", "must be greater than 0")
	}
	if price != nil && price.IsNegative() {
		v.add("acquisition_price", "must be greater than or equal to 0")
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			v.add("acquisition_date", "must be a date in YYYY-MM-DD format")
		}
	}
}

func priceString(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := p.StringFixed(2)
	return &s
}
