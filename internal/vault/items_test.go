package vault_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/HendryAvila/cardvault/internal/vault"
)

func cardRef(c *vault.MTGCard) vault.Ref {
	return vault.Ref{Type: vault.CatalogEntryMTGCard, ID: c.ID}
}

func intPtr(n int) *int { return &n }

// ─── AddMTGCardItem ─────────────────────────────────────────────────────────

func TestAddMTGCardItem_Defaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Lightning Bolt")

	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: cardRef(card),
	}, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}
	if item.Quantity != 1 {
		t.Errorf("quantity = %d, want 1", item.Quantity)
	}
	if item.StorageUnitID != nil {
		t.Errorf("storage_unit_id = %q, want nil", *item.StorageUnitID)
	}
	if _, err := uuid.Parse(item.ID); err != nil {
		t.Errorf("item id %q is not a UUID", item.ID)
	}
	if item.Detail.Type != vault.DetailMTGCard {
		t.Errorf("detail type = %q", item.Detail.Type)
	}

	d, err := s.GetMTGCardDetail(ctx, item.Detail.ID)
	if err != nil {
		t.Fatalf("GetMTGCardDetail: %v", err)
	}
	if d.Condition != vault.ConditionNM || d.Finish != vault.FinishNonfoil || d.Language != "EN" {
		t.Errorf("detail defaults = %s/%s/%s", d.Condition, d.Finish, d.Language)
	}
	if d.Signed || d.Altered || d.Graded {
		t.Errorf("boolean defaults should be false: %+v", d)
	}
}

func TestAddMTGCardItem_QuantityValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Shock")

	for _, qty := range []int{0, -3} {
		_, err := s.AddMTGCardItem(ctx, vault.NewItem{
			CollectionID: f.collection.ID,
			CatalogEntry: cardRef(card),
			Quantity:     intPtr(qty),
		}, vault.NewMTGCardDetail{ID: "detail-for-bad-qty"})
		ve := wantKind(t, err, vault.KindValidation)
		if !hasField(ve, "quantity") {
			t.Errorf("qty %d: fields = %+v", qty, ve.Fields)
		}
	}

	// The detail written earlier in the same transaction is rolled back.
	_, err := s.GetMTGCardDetail(ctx, "detail-for-bad-qty")
	wantKind(t, err, vault.KindNotFound)

	items, err := s.ItemsInCollection(ctx, f.collection.ID)
	if err != nil {
		t.Fatalf("ItemsInCollection: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
}

func TestAddMTGCardItem_DetailEnums(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Shock")

	tests := []struct {
		name   string
		detail vault.NewMTGCardDetail
		field  string
	}{
		{"condition", vault.NewMTGCardDetail{Condition: "MINT"}, "condition"},
		{"finish", vault.NewMTGCardDetail{Finish: "glossy"}, "finish"},
		{"language", vault.NewMTGCardDetail{Language: "xx"}, "language"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMTGCardItem(ctx, vault.NewItem{
				CollectionID: f.collection.ID,
				CatalogEntry: cardRef(card),
			}, tt.detail)
			ve := wantKind(t, err, vault.KindValidation)
			if !hasField(ve, tt.field) {
				t.Errorf("fields = %+v, want %q", ve.Fields, tt.field)
			}
		})
	}
}

func TestAddMTGCardItem_GradingUnconstrained(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Black Lotus")

	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: cardRef(card),
	}, vault.NewMTGCardDetail{Graded: false, GradingService: "PSA", Grade: "9"})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}
	d, err := s.GetMTGCardDetail(ctx, item.Detail.ID)
	if err != nil {
		t.Fatalf("GetMTGCardDetail: %v", err)
	}
	if d.GradingService == nil || *d.GradingService != "PSA" || d.Grade == nil || *d.Grade != "9" {
		t.Errorf("grading fields = %v/%v", d.GradingService, d.Grade)
	}
}

func TestAddMTGCardItem_PriceAndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Sol Ring")

	price := decimal.RequireFromString("12.5")
	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:     f.collection.ID,
		CatalogEntry:     cardRef(card),
		AcquisitionPrice: &price,
		AcquisitionDate:  "2026-03-14",
		Notes:            "from the LGS",
	}, vault.NewMTGCardDetail{Finish: vault.FinishFoil})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}
	if item.AcquisitionPrice == nil || item.AcquisitionPrice.StringFixed(2) != "12.50" {
		t.Errorf("price = %v, want 12.50", item.AcquisitionPrice)
	}
	if item.AcquisitionDate == nil || *item.AcquisitionDate != "2026-03-14" {
		t.Errorf("date = %v", item.AcquisitionDate)
	}

	_, err = s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:    f.collection.ID,
		CatalogEntry:    cardRef(card),
		AcquisitionDate: "14/03/2026",
	}, vault.NewMTGCardDetail{})
	ve := wantKind(t, err, vault.KindValidation)
	if !hasField(ve, "acquisition_date") {
		t.Errorf("fields = %+v", ve.Fields)
	}
}

// ─── Reference resolution ───────────────────────────────────────────────────

func TestAddItem_StorageScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	main := newFixture(t, s, "Main")
	trade := newFixture(t, s, "Trade")
	card := mustCard(t, s, "Dark Ritual")

	_, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:  main.collection.ID,
		StorageUnitID: trade.shelf.ID,
		CatalogEntry:  cardRef(card),
	}, vault.NewMTGCardDetail{})
	ve := wantKind(t, err, vault.KindStorageScope)
	if !hasField(ve, "storage_unit_id") || !hasField(ve, "collection_id") {
		t.Errorf("fields = %+v, want both ids named", ve.Fields)
	}

	// Once attached the same write succeeds.
	if _, err := s.Attach(ctx, trade.shelf.ID, main.collection.ID); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:  main.collection.ID,
		StorageUnitID: trade.shelf.ID,
		CatalogEntry:  cardRef(card),
	}, vault.NewMTGCardDetail{}); err != nil {
		t.Fatalf("AddMTGCardItem after attach: %v", err)
	}
}

func TestAddItem_MissingReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Brainstorm")

	tests := []struct {
		name  string
		in    vault.NewItem
		field string
	}{
		{
			"collection",
			vault.NewItem{CollectionID: "missing", CatalogEntry: cardRef(card)},
			"collection_id",
		},
		{
			"catalog entry",
			vault.NewItem{CollectionID: f.collection.ID, CatalogEntry: vault.Ref{Type: vault.CatalogEntryMTGCard, ID: "missing"}},
			"catalog_entry",
		},
		{
			"storage unit",
			vault.NewItem{CollectionID: f.collection.ID, CatalogEntry: cardRef(card), StorageUnitID: "missing"},
			"storage_unit_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddMTGCardItem(ctx, tt.in, vault.NewMTGCardDetail{})
			ve := wantKind(t, err, vault.KindReferential)
			if !hasField(ve, tt.field) {
				t.Errorf("fields = %+v, want %q", ve.Fields, tt.field)
			}
		})
	}
}

func TestAddItem_TypeMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Brainstorm")
	d, err := s.CreateMTGCardDetail(ctx, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("CreateMTGCardDetail: %v", err)
	}

	_, err = s.AddItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: vault.Ref{Type: "PokemonCard", ID: card.ID},
		Detail:       vault.Ref{Type: "PokemonCardItemDetail", ID: d.ID},
	})
	ve := wantKind(t, err, vault.KindValidation)
	if !hasField(ve, "catalog_entry_type") || !hasField(ve, "detail_type") {
		t.Errorf("fields = %+v", ve.Fields)
	}
}

func TestAddItem_DetailAlreadyClaimed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Ponder")

	first, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: cardRef(card),
	}, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}

	_, err = s.AddItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: cardRef(card),
		Detail:       first.Detail,
	})
	ve := wantKind(t, err, vault.KindUniqueness)
	if !hasField(ve, "detail") {
		t.Errorf("fields = %+v", ve.Fields)
	}
}

func TestAddItem_ConcurrentDetailClaim(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Ponder")
	d, err := s.CreateMTGCardDetail(ctx, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("CreateMTGCardDetail: %v", err)
	}

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.AddItem(ctx, vault.NewItem{
				CollectionID: f.collection.ID,
				CatalogEntry: cardRef(card),
				Detail:       vault.Ref{Type: vault.DetailMTGCard, ID: d.ID},
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		if vault.KindOf(err) != vault.KindUniqueness {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful claims = %d, want 1", ok)
	}
}

func TestAttach_ConcurrentSamePair(t *testing.T) {
	s := newMemStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	box := mustUnit(t, s, "Box", "box", "")

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Attach(ctx, box.ID, f.collection.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if vault.KindOf(err) != vault.KindUniqueness {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful attaches = %d, want 1", ok)
	}
}

// ─── Update / Delete ────────────────────────────────────────────────────────

func TestUpdateItem_RechecksScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	main := newFixture(t, s, "Main")
	trade := newFixture(t, s, "Trade")
	card := mustCard(t, s, "Swords to Plowshares")

	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:  main.collection.ID,
		StorageUnitID: main.shelf.ID,
		CatalogEntry:  cardRef(card),
	}, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}

	_, err = s.UpdateItem(ctx, item.ID, vault.ItemUpdate{StorageUnitID: &trade.shelf.ID})
	wantKind(t, err, vault.KindStorageScope)

	// Moving to the other collection while keeping the main shelf is also
	// out of scope.
	_, err = s.UpdateItem(ctx, item.ID, vault.ItemUpdate{CollectionID: &trade.collection.ID})
	wantKind(t, err, vault.KindStorageScope)

	got, err := s.UpdateItem(ctx, item.ID, vault.ItemUpdate{
		CollectionID:  &trade.collection.ID,
		StorageUnitID: &trade.shelf.ID,
		Quantity:      intPtr(4),
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.CollectionID != trade.collection.ID || got.Quantity != 4 {
		t.Errorf("unexpected item %+v", got)
	}

	_, err = s.UpdateItem(ctx, item.ID, vault.ItemUpdate{Quantity: intPtr(0)})
	wantKind(t, err, vault.KindValidation)
}

func TestDeleteItem_RemovesDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	card := mustCard(t, s, "Opt")

	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID: f.collection.ID,
		CatalogEntry: cardRef(card),
	}, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}
	if err := s.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	_, err = s.GetMTGCardDetail(ctx, item.Detail.ID)
	wantKind(t, err, vault.KindNotFound)

	err = s.DeleteItem(ctx, item.ID)
	wantKind(t, err, vault.KindNotFound)
}

func TestUpdateMTGCardDetail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d, err := s.CreateMTGCardDetail(ctx, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("CreateMTGCardDetail: %v", err)
	}

	lp := vault.ConditionLP
	signed := true
	got, err := s.UpdateMTGCardDetail(ctx, d.ID, vault.MTGCardDetailUpdate{Condition: &lp, Signed: &signed})
	if err != nil {
		t.Fatalf("UpdateMTGCardDetail: %v", err)
	}
	if got.Condition != vault.ConditionLP || !got.Signed || got.Finish != vault.FinishNonfoil {
		t.Errorf("unexpected detail %+v", got)
	}

	bad := vault.Condition("MINT")
	_, err = s.UpdateMTGCardDetail(ctx, d.ID, vault.MTGCardDetailUpdate{Condition: &bad})
	wantKind(t, err, vault.KindValidation)
}

func TestUpdateMTGCardItem_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	fx := newFixture(t, s, "Main")
	other := newFixture(t, s, "Trade")
	card := mustCard(t, s, "Counterspell")

	item, err := s.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID: fx.collection.ID,
		CatalogEntry: cardRef(card),
	}, vault.NewMTGCardDetail{})
	if err != nil {
		t.Fatalf("AddMTGCardItem: %v", err)
	}

	unchanged := func(t *testing.T) {
		t.Helper()
		got, err := s.GetItem(ctx, item.ID)
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if got.Quantity != 1 || got.StorageUnitID != nil {
			t.Errorf("item changed after failed update: %+v", got)
		}
		d, err := s.GetMTGCardDetail(ctx, item.Detail.ID)
		if err != nil {
			t.Fatalf("GetMTGCardDetail: %v", err)
		}
		if d.Condition != vault.ConditionNM || d.Signed {
			t.Errorf("detail changed after failed update: %+v", d)
		}
	}

	bogus := vault.Condition("BOGUS")
	lp := vault.ConditionLP
	signed := true

	t.Run("bad detail keeps quantity", func(t *testing.T) {
		_, err := s.UpdateMTGCardItem(ctx, item.ID,
			vault.ItemUpdate{Quantity: intPtr(7)},
			vault.MTGCardDetailUpdate{Condition: &bogus})
		ve := wantKind(t, err, vault.KindValidation)
		if !hasField(ve, "condition") {
			t.Errorf("fields = %+v, want condition", ve.Fields)
		}
		unchanged(t)
	})

	t.Run("bad quantity keeps detail", func(t *testing.T) {
		_, err := s.UpdateMTGCardItem(ctx, item.ID,
			vault.ItemUpdate{Quantity: intPtr(0)},
			vault.MTGCardDetailUpdate{Condition: &lp, Signed: &signed})
		wantKind(t, err, vault.KindValidation)
		unchanged(t)
	})

	t.Run("out of scope storage keeps detail", func(t *testing.T) {
		_, err := s.UpdateMTGCardItem(ctx, item.ID,
			vault.ItemUpdate{StorageUnitID: &other.shelf.ID},
			vault.MTGCardDetailUpdate{Condition: &lp})
		wantKind(t, err, vault.KindStorageScope)
		unchanged(t)
	})

	t.Run("item write failure keeps detail", func(t *testing.T) {
		s.FailExecWhen(func(q string) bool { return strings.Contains(q, "UPDATE items") }, errors.New("disk full"))
		defer s.ResetHooks()
		_, err := s.UpdateMTGCardItem(ctx, item.ID,
			vault.ItemUpdate{Quantity: intPtr(3)},
			vault.MTGCardDetailUpdate{Condition: &lp})
		if err == nil {
			t.Fatal("expected error from failed item write")
		}
		s.ResetHooks()
		unchanged(t)
	})

	t.Run("both applied", func(t *testing.T) {
		got, err := s.UpdateMTGCardItem(ctx, item.ID,
			vault.ItemUpdate{Quantity: intPtr(7), StorageUnitID: &fx.shelf.ID},
			vault.MTGCardDetailUpdate{Condition: &lp, Signed: &signed})
		if err != nil {
			t.Fatalf("UpdateMTGCardItem: %v", err)
		}
		if got.Quantity != 7 || got.StorageUnitID == nil || *got.StorageUnitID != fx.shelf.ID {
			t.Errorf("unexpected item %+v", got)
		}
		d, err := s.GetMTGCardDetail(ctx, item.Detail.ID)
		if err != nil {
			t.Fatalf("GetMTGCardDetail: %v", err)
		}
		if d.Condition != vault.ConditionLP || !d.Signed {
			t.Errorf("unexpected detail %+v", d)
		}
	})
}

func TestItemsForCatalogEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	f := newFixture(t, s, "Main")
	bolt := mustCard(t, s, "Lightning Bolt")
	shock := mustCard(t, s, "Shock")

	for _, c := range []*vault.MTGCard{bolt, bolt, shock} {
		if _, err := s.AddMTGCardItem(ctx, vault.NewItem{
			CollectionID: f.collection.ID,
			CatalogEntry: cardRef(c),
		}, vault.NewMTGCardDetail{}); err != nil {
			t.Fatalf("AddMTGCardItem: %v", err)
		}
	}
	items, err := s.ItemsForCatalogEntry(ctx, cardRef(bolt))
	if err != nil {
		t.Fatalf("ItemsForCatalogEntry: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}
