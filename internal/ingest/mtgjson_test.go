package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/cardvault/internal/vault"
)

type snapCard struct {
	uuid, name, set, cost, typ, rarity, number string
}

// writeSnapshot builds a minimal AllPrintings-shaped SQLite file.
func writeSnapshot(t *testing.T, withMeta bool, cards []snapCard) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AllPrintings.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE sets (code TEXT PRIMARY KEY, name TEXT, releaseDate TEXT);
		CREATE TABLE cards (uuid TEXT PRIMARY KEY, name TEXT, setCode TEXT, manaCost TEXT,
		                    type TEXT, rarity TEXT, number TEXT);
		INSERT INTO sets VALUES ('LEA', 'Limited Edition Alpha', '1993-08-05'), ('2XM', 'Double Masters', NULL);
	`)
	require.NoError(t, err)
	if withMeta {
		_, err = db.Exec(`CREATE TABLE meta (date TEXT, version TEXT);
			INSERT INTO meta VALUES ('2026-10-01', '5.2.2+20261001');`)
		require.NoError(t, err)
	}
	for _, c := range cards {
		_, err := db.Exec(`INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.uuid, c.name, c.set, nullIfEmpty(c.cost), c.typ, c.rarity, c.number)
		require.NoError(t, err)
	}
	return path
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func newStore(t *testing.T) *vault.Store {
	t.Helper()
	s, err := vault.New(vault.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newCatalog(t *testing.T, s *vault.Store, st vault.SourceType) *vault.Catalog {
	t.Helper()
	cat, err := s.CreateCatalog(context.Background(), vault.NewCatalog{
		Name:         "MTGJSON Catalog",
		SourceType:   st,
		SourceConfig: map[string]any{"version": nil, "last_updated": nil},
	})
	require.NoError(t, err)
	return cat
}

func TestAdapterFor(t *testing.T) {
	s := newStore(t)

	a, err := AdapterFor(s, newCatalog(t, s, vault.SourceMTGJSON), Options{})
	require.NoError(t, err)
	assert.IsType(t, &MTGJSONAdapter{}, a)

	for _, st := range []vault.SourceType{vault.SourceAPI, vault.SourceCustom} {
		_, err := AdapterFor(s, &vault.Catalog{Name: "x", SourceType: st}, Options{})
		assert.ErrorIs(t, err, vault.ErrNotImpl, "source type %s", st)
	}

	_, err = AdapterFor(s, &vault.Catalog{Name: "x", SourceType: "scryfall"}, Options{})
	require.Error(t, err)
	assert.Empty(t, vault.KindOf(err))
}

func TestMTGJSONImport(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cat := newCatalog(t, s, vault.SourceMTGJSON)

	var cards []snapCard
	for i := 0; i < 7; i++ {
		cards = append(cards, snapCard{
			uuid: fmt.Sprintf("uuid-%02d", i), name: fmt.Sprintf("Goblin %d", i),
			set: "2XM", typ: "Creature — Goblin", rarity: "common", number: fmt.Sprint(i + 1),
		})
	}
	cards = append(cards, snapCard{uuid: "uuid-bolt", name: "Lightning Bolt", set: "LEA", cost: "{R}", typ: "Instant", rarity: "common", number: "161"})
	path := writeSnapshot(t, true, cards)

	stats, err := NewMTGJSONAdapter(s, cat, Options{BatchSize: 3}).Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sets)
	assert.Equal(t, 8, stats.Cards)
	assert.Equal(t, "5.2.2+20261001", stats.Version)

	got, err := s.GetCard(ctx, "uuid-bolt")
	require.NoError(t, err)
	assert.Equal(t, "Lightning Bolt", got.Name)
	assert.Equal(t, "{R}", got.ManaCost)
	assert.Equal(t, "161", got.CollectorNumber)

	set, err := s.GetSet(ctx, "LEA")
	require.NoError(t, err)
	assert.Equal(t, "1993-08-05", set.ReleaseDate)

	results, err := s.Search(ctx, "goblin", 0)
	require.NoError(t, err)
	assert.Len(t, results, 7)

	updated, err := s.GetCatalog(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "5.2.2+20261001", updated.SourceConfig["version"])
	assert.Equal(t, "2026-10-01", updated.SourceConfig["last_updated"])

	report, err := s.VerifyIndex(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent(), "%+v", report)
}

func TestMTGJSONImport_ReimportIsIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cat := newCatalog(t, s, vault.SourceMTGJSON)

	first := writeSnapshot(t, false, []snapCard{
		{uuid: "u1", name: "Llanowar Elves", set: "LEA"},
		{uuid: "u2", name: "Giant Growth", set: "LEA"},
	})
	a := NewMTGJSONAdapter(s, cat, Options{})
	_, err := a.Import(ctx, first)
	require.NoError(t, err)

	second := writeSnapshot(t, false, []snapCard{
		{uuid: "u1", name: "Llanowar Elves", set: "LEA", rarity: "common"},
		{uuid: "u2", name: "Giant Growth", set: "LEA"},
	})
	stats, err := a.Import(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Cards)
	assert.Empty(t, stats.Version)

	n, err := s.CardCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := s.Search(ctx, "llanowar", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "common", results[0].Rarity)
}

func TestMTGJSONImport_MissingFile(t *testing.T) {
	s := newStore(t)
	cat := newCatalog(t, s, vault.SourceMTGJSON)

	_, err := NewMTGJSONAdapter(s, cat, Options{}).Import(context.Background(), filepath.Join(t.TempDir(), "nope.sqlite"))
	require.Error(t, err)
}

func TestMTGJSONImport_BadCardAbortsBatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	cat := newCatalog(t, s, vault.SourceMTGJSON)

	path := writeSnapshot(t, false, []snapCard{
		{uuid: "a", name: "Ancestral Recall", set: "LEA"},
		{uuid: "b", name: "", set: "LEA"},
	})
	_, err := NewMTGJSONAdapter(s, cat, Options{BatchSize: 10}).Import(ctx, path)
	assert.ErrorIs(t, err, vault.ErrValidation)

	_, err = s.GetCard(ctx, "a")
	assert.ErrorIs(t, err, vault.ErrNotFound, "the whole batch rolls back")
}
