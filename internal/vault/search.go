package vault

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// ─── Search ──────────────────────────────────────────────────────────────────

// trigramMin is the shortest query the trigram tokenizer can MATCH.
const trigramMin = 3

// Search returns catalog cards whose name contains query, ignoring case.
// Exact full-name matches come first; partial matches follow in order of
// fuzzy distance, then name. An empty or blank query returns no rows.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]CardResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	folded := foldName(query)
	var rows *sql.Rows
	var err error
	if utf8.RuneCountInString(query) >= trigramMin {
		rows, err = s.db.QueryContext(ctx,
			`SELECT c.id, c.name, COALESCE(c.set_code, ''), COALESCE(c.mana_cost, ''), COALESCE(c.type_line, ''),
			        COALESCE(c.rarity, ''), COALESCE(c.collector_number, ''),
			        c.name_folded = ? AS exact, f.rank
			 FROM mtg_cards_fts f
			 JOIN mtg_cards c ON c.row_id = f.rowid
			 WHERE mtg_cards_fts MATCH ?
			 ORDER BY exact DESC, f.rank
			 LIMIT ?`,
			folded, quotePhrase(query), limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT c.id, c.name, COALESCE(c.set_code, ''), COALESCE(c.mana_cost, ''), COALESCE(c.type_line, ''),
			        COALESCE(c.rarity, ''), COALESCE(c.collector_number, ''),
			        c.name_folded = ? AS exact, 0.0
			 FROM mtg_cards_fts f
			 JOIN mtg_cards c ON c.row_id = f.rowid
			 WHERE c.name_folded LIKE ? ESCAPE '\'
			 ORDER BY exact DESC, c.name
			 LIMIT ?`,
			folded, "%"+escapeLike(folded)+"%", limit)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: search cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []CardResult
	for rows.Next() {
		var r CardResult
		if err := rows.Scan(&r.ID, &r.Name, &r.SetCode, &r.ManaCost, &r.TypeLine, &r.Rarity, &r.CollectorNumber,
			&r.Exact, &r.Rank); err != nil {
			return nil, fmt.Errorf("vault: scan search result: %w", err)
		}
		r.Exact = foldName(r.Name) == folded
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rankResults(query, results)
	return results, nil
}

// SearchByName is Search with the configured result limit.
func (s *Store) SearchByName(ctx context.Context, term string) ([]CardResult, error) {
	return s.Search(ctx, term, 0)
}

func rankResults(query string, results []CardResult) {
	dist := make(map[string]int, len(results))
	for _, r := range results {
		dist[r.ID] = fuzzy.RankMatchFold(query, r.Name)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Exact != b.Exact {
			return a.Exact
		}
		if dist[a.ID] != dist[b.ID] {
			return dist[a.ID] < dist[b.ID]
		}
		return a.Name < b.Name
	})
}

// foldName lowercases a card name for case-insensitive comparison. SQLite's
// lower() and LIKE only fold ASCII, so names are folded here and stored.
func foldName(name string) string {
	return strings.ToLower(name)
}

// quotePhrase wraps q as a single FTS5 string so operator characters in the
// query are matched literally.
func quotePhrase(q string) string {
	return `"` + strings.ReplaceAll(q, `"`, `""`) + `"`
}

func escapeLike(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(q)
}

// ─── Index maintenance ───────────────────────────────────────────────────────

// Reindex rebuilds the search index from the card table in one transaction
// and returns the number of indexed cards.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.execHook(ctx, tx, `DELETE FROM mtg_cards_fts`); err != nil {
			return fmt.Errorf("vault: clear index: %w", err)
		}
		if _, err := s.execHook(ctx, tx,
			`INSERT INTO mtg_cards_fts (rowid, id, name) SELECT row_id, id, name FROM mtg_cards`,
		); err != nil {
			return fmt.Errorf("vault: rebuild index: %w", err)
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM mtg_cards_fts`).Scan(&n)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("search index rebuilt", "cards", n)
	return n, nil
}

// VerifyIndex compares the search index with the card table.
func (s *Store) VerifyIndex(ctx context.Context) (IndexReport, error) {
	var r IndexReport
	checks := []struct {
		dst   *int
		query string
	}{
		{&r.Cards, `SELECT COUNT(*) FROM mtg_cards`},
		{&r.Indexed, `SELECT COUNT(*) FROM mtg_cards_fts`},
		{&r.Missing, `SELECT COUNT(*) FROM mtg_cards c
			WHERE NOT EXISTS (SELECT 1 FROM mtg_cards_fts f WHERE f.rowid = c.row_id)`},
		{&r.Stale, `SELECT COUNT(*) FROM mtg_cards_fts f
			JOIN mtg_cards c ON c.row_id = f.rowid
			WHERE f.id != c.id OR f.name != c.name`},
		{&r.Orphans, `SELECT COUNT(*) FROM mtg_cards_fts f
			WHERE NOT EXISTS (SELECT 1 FROM mtg_cards c WHERE c.row_id = f.rowid)`},
	}
	for _, c := range checks {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return IndexReport{}, fmt.Errorf("vault: verify index: %w", err)
		}
	}
	return r, nil
}
