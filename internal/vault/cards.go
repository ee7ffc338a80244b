package vault

import (
	"context"
	"database/sql"
	"fmt"
)

// ─── Card write path ─────────────────────────────────────────────────────────
//
// Every mutation of mtg_cards goes through a CardWriter. Each card write is
// paired with its index write inside the same transaction, so the search
// index never observes one without the other.

const cardColumns = `row_id, id, name, COALESCE(set_code, ''), COALESCE(mana_cost, ''), COALESCE(type_line, ''),
	COALESCE(rarity, ''), COALESCE(collector_number, '')`

// CardWriter mutates catalog cards and their index rows inside one
// transaction. Obtain one with Store.WithCardWriter.
type CardWriter struct {
	s  *Store
	tx *sql.Tx
}

// WithCardWriter runs fn with a CardWriter bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithCardWriter(ctx context.Context, fn func(w *CardWriter) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&CardWriter{s: s, tx: tx})
	})
}

// InsertCard adds a card and its index row.
func (w *CardWriter) InsertCard(ctx context.Context, c MTGCard) (*MTGCard, error) {
	c.ID = newID(c.ID)
	if err := validateCard(c); err != nil {
		return nil, err
	}

	taken, err := rowExists(ctx, w.tx, "mtg_cards", c.ID)
	if err != nil {
		return nil, fmt.Errorf("vault: check card id: %w", err)
	}
	if taken {
		return nil, newError(KindUniqueness, "id", "has already been taken")
	}

	res, err := w.s.execHook(ctx, w.tx,
		`INSERT INTO mtg_cards (id, name, name_folded, set_code, mana_cost, type_line, rarity, collector_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, foldName(c.Name), nullableString(c.SetCode), nullableString(c.ManaCost), nullableString(c.TypeLine),
		nullableString(c.Rarity), nullableString(c.CollectorNumber),
	)
	if err != nil {
		return nil, mapConstraint(err, "set_code")
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("vault: card row id: %w", err)
	}
	if err := w.indexCard(ctx, rowID, c.ID, c.Name); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCard partially updates a card. The index row is always deleted and
// re-inserted, even when the name is unchanged.
func (w *CardWriter) UpdateCard(ctx context.Context, id string, p MTGCardUpdate) (*MTGCard, error) {
	rowID, c, err := getCard(ctx, w.tx, id)
	if err != nil {
		return nil, err
	}
	applyCardUpdate(c, p)
	if err := validateCard(*c); err != nil {
		return nil, err
	}

	if _, err := w.s.execHook(ctx, w.tx,
		`UPDATE mtg_cards
		 SET name = ?, name_folded = ?, set_code = ?, mana_cost = ?, type_line = ?, rarity = ?,
		     collector_number = ?, updated_at = datetime('now')
		 WHERE row_id = ?`,
		c.Name, foldName(c.Name), nullableString(c.SetCode), nullableString(c.ManaCost), nullableString(c.TypeLine),
		nullableString(c.Rarity), nullableString(c.CollectorNumber), rowID,
	); err != nil {
		return nil, mapConstraint(err, "set_code")
	}
	if err := w.unindexCard(ctx, rowID); err != nil {
		return nil, err
	}
	if err := w.indexCard(ctx, rowID, c.ID, c.Name); err != nil {
		return nil, err
	}
	return c, nil
}

// UpsertCard inserts c, or replaces every field of the existing card with
// the same id.
func (w *CardWriter) UpsertCard(ctx context.Context, c MTGCard) (*MTGCard, error) {
	if c.ID == "" {
		return w.InsertCard(ctx, c)
	}
	found, err := rowExists(ctx, w.tx, "mtg_cards", c.ID)
	if err != nil {
		return nil, fmt.Errorf("vault: check card id: %w", err)
	}
	if !found {
		return w.InsertCard(ctx, c)
	}
	return w.UpdateCard(ctx, c.ID, MTGCardUpdate{
		Name:            &c.Name,
		SetCode:         &c.SetCode,
		ManaCost:        &c.ManaCost,
		TypeLine:        &c.TypeLine,
		Rarity:          &c.Rarity,
		CollectorNumber: &c.CollectorNumber,
	})
}

// DeleteCard removes a card and its index row. It is refused while items
// reference the card.
func (w *CardWriter) DeleteCard(ctx context.Context, id string) error {
	rowID, _, err := getCard(ctx, w.tx, id)
	if err != nil {
		return err
	}
	used, err := exists(ctx, w.tx,
		`SELECT 1 FROM items WHERE catalog_entry_type = ? AND catalog_entry_id = ?`, CatalogEntryMTGCard, id)
	if err != nil {
		return fmt.Errorf("vault: check card references: %w", err)
	}
	if used {
		return newError(KindReferential, "item", "cannot delete record because dependent items exist")
	}

	if _, err := w.s.execHook(ctx, w.tx, `DELETE FROM mtg_cards WHERE row_id = ?`, rowID); err != nil {
		return fmt.Errorf("vault: delete card %s: %w", id, err)
	}
	return w.unindexCard(ctx, rowID)
}

// UpsertSet inserts or replaces a set by code.
func (w *CardWriter) UpsertSet(ctx context.Context, set MTGSet) error {
	v := &validator{}
	v.required("code", set.Code)
	v.required("name", set.Name)
	if err := v.err(); err != nil {
		return err
	}
	_, err := w.s.execHook(ctx, w.tx,
		`INSERT INTO mtg_sets (code, name, release_date) VALUES (?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET name = excluded.name, release_date = excluded.release_date`,
		set.Code, set.Name, nullableString(set.ReleaseDate))
	if err != nil {
		return fmt.Errorf("vault: upsert set %s: %w", set.Code, err)
	}
	return nil
}

func (w *CardWriter) indexCard(ctx context.Context, rowID int64, id, name string) error {
	if _, err := w.s.execHook(ctx, w.tx,
		`INSERT INTO mtg_cards_fts (rowid, id, name) VALUES (?, ?, ?)`, rowID, id, name,
	); err != nil {
		return fmt.Errorf("vault: index card %s: %w", id, err)
	}
	return nil
}

func (w *CardWriter) unindexCard(ctx context.Context, rowID int64) error {
	if _, err := w.s.execHook(ctx, w.tx, `DELETE FROM mtg_cards_fts WHERE rowid = ?`, rowID); err != nil {
		return fmt.Errorf("vault: unindex card row %d: %w", rowID, err)
	}
	return nil
}

// ─── Single-write conveniences ───────────────────────────────────────────────

// InsertCard adds one card in its own transaction.
func (s *Store) InsertCard(ctx context.Context, c MTGCard) (*MTGCard, error) {
	var out *MTGCard
	err := s.WithCardWriter(ctx, func(w *CardWriter) error {
		var err error
		out, err = w.InsertCard(ctx, c)
		return err
	})
	return out, err
}

// UpdateCard updates one card in its own transaction.
func (s *Store) UpdateCard(ctx context.Context, id string, p MTGCardUpdate) (*MTGCard, error) {
	var out *MTGCard
	err := s.WithCardWriter(ctx, func(w *CardWriter) error {
		var err error
		out, err = w.UpdateCard(ctx, id, p)
		return err
	})
	return out, err
}

// UpsertCard upserts one card in its own transaction.
func (s *Store) UpsertCard(ctx context.Context, c MTGCard) (*MTGCard, error) {
	var out *MTGCard
	err := s.WithCardWriter(ctx, func(w *CardWriter) error {
		var err error
		out, err = w.UpsertCard(ctx, c)
		return err
	})
	return out, err
}

// DeleteCard deletes one card in its own transaction.
func (s *Store) DeleteCard(ctx context.Context, id string) error {
	return s.WithCardWriter(ctx, func(w *CardWriter) error {
		return w.DeleteCard(ctx, id)
	})
}

// UpsertSet upserts one set in its own transaction.
func (s *Store) UpsertSet(ctx context.Context, set MTGSet) error {
	return s.WithCardWriter(ctx, func(w *CardWriter) error {
		return w.UpsertSet(ctx, set)
	})
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// GetCard retrieves a catalog card by ID.
func (s *Store) GetCard(ctx context.Context, id string) (*MTGCard, error) {
	_, c, err := getCard(ctx, s.db, id)
	return c, err
}

// GetSet retrieves a set by code.
func (s *Store) GetSet(ctx context.Context, code string) (*MTGSet, error) {
	var set MTGSet
	err := s.db.QueryRowContext(ctx,
		`SELECT code, name, COALESCE(release_date, '') FROM mtg_sets WHERE code = ?`, code,
	).Scan(&set.Code, &set.Name, &set.ReleaseDate)
	if isNoRows(err) {
		return nil, notFound("set", code)
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// CardCount returns the number of catalog cards.
func (s *Store) CardCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mtg_cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vault: count cards: %w", err)
	}
	return n, nil
}

func getCard(ctx context.Context, q querier, id string) (int64, *MTGCard, error) {
	var rowID int64
	var c MTGCard
	err := q.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM mtg_cards WHERE id = ?`, id).Scan(
		&rowID, &c.ID, &c.Name, &c.SetCode, &c.ManaCost, &c.TypeLine, &c.Rarity, &c.CollectorNumber)
	if isNoRows(err) {
		return 0, nil, notFound("card", id)
	}
	if err != nil {
		return 0, nil, err
	}
	return rowID, &c, nil
}

func applyCardUpdate(c *MTGCard, p MTGCardUpdate) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.SetCode != nil {
		c.SetCode = *p.SetCode
	}
	if p.ManaCost != nil {
		c.ManaCost = *p.ManaCost
	}
	if p.TypeLine != nil {
		c.TypeLine = *p.TypeLine
	}
	if p.Rarity != nil {
		c.Rarity = *p.Rarity
	}
	if p.CollectorNumber != nil {
		c.CollectorNumber = *p.CollectorNumber
	}
}

func validateCard(c MTGCard) error {
	v := &validator{}
	v.required("name", c.Name)
	return v.err()
}
