package vault

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Built-in reference types.
const (
	ItemTypeMTGCard     = "mtg_card"
	CatalogEntryMTGCard = "MTGCard"
	DetailMTGCard       = "MTGCardItemDetail"
)

// ItemKind ties a collection item_type to the one detail type its items
// carry and the catalog entry types they may reference.
type ItemKind struct {
	ItemType          string
	DetailType        string
	CatalogEntryTypes []string
}

// Registry maps reference type discriminators to the tables holding them.
// The set of types is open: new catalog domains register here.
type Registry struct {
	mu      sync.RWMutex
	kinds   map[string]ItemKind
	entries map[string]string
	details map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:   make(map[string]ItemKind),
		entries: make(map[string]string),
		details: make(map[string]string),
	}
}

// DefaultRegistry returns a registry with the MTG card kind registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterCatalogEntry(CatalogEntryMTGCard, "mtg_cards")
	r.RegisterKind(ItemKind{
		ItemType:          ItemTypeMTGCard,
		DetailType:        DetailMTGCard,
		CatalogEntryTypes: []string{CatalogEntryMTGCard},
	}, "mtg_card_item_details")
	return r
}

// RegisterCatalogEntry maps a catalog entry type to the table keyed by id
// that stores it.
func (r *Registry) RegisterCatalogEntry(typ, table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[typ] = table
}

// RegisterKind registers an item kind and the table storing its detail type.
func (r *Registry) RegisterKind(k ItemKind, detailTable string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.ItemType] = k
	r.details[k.DetailType] = detailTable
}

// Kind returns the item kind registered for itemType.
func (r *Registry) Kind(itemType string) (ItemKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[itemType]
	return k, ok
}

func (r *Registry) entryTable(typ string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entries[typ]
	return t, ok
}

func (r *Registry) detailTable(typ string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.details[typ]
	return t, ok
}

// rowExists looks id up in table. table always comes from the registry.
func rowExists(ctx context.Context, q querier, table, id string) (bool, error) {
	return exists(ctx, q, fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table), id)
}

// ResolveCatalogEntry reports whether ref points at an existing catalog entry.
func (s *Store) ResolveCatalogEntry(ctx context.Context, ref Ref) (bool, error) {
	table, ok := s.kinds.entryTable(ref.Type)
	if !ok {
		return false, newError(KindValidation, "catalog_entry_type", fmt.Sprintf("unknown type %q", ref.Type))
	}
	return rowExists(ctx, s.db, table, ref.ID)
}

// itemRefs is the part of an item the resolver checks.
type itemRefs struct {
	ID            string
	CollectionID  string
	StorageUnitID string
	CatalogEntry  Ref
	Detail        Ref
}

// resolveItem enforces every cross-table rule for an item write: the
// collection exists, both references resolve, the detail type matches the
// collection's item type, the detail is not claimed by another item, and the
// storage unit (when set) is attached to the item's collection.
func (s *Store) resolveItem(ctx context.Context, q querier, it itemRefs) error {
	var itemType string
	err := q.QueryRowContext(ctx, `SELECT item_type FROM collections WHERE id = ?`, it.CollectionID).Scan(&itemType)
	if err != nil {
		if isNoRows(err) {
			return newError(KindReferential, "collection_id", "must exist")
		}
		return fmt.Errorf("vault: resolve collection: %w", err)
	}

	kind, ok := s.kinds.Kind(itemType)
	if !ok {
		return newError(KindValidation, "detail_type",
			fmt.Sprintf("collection item_type %q has no registered detail type", itemType))
	}

	v := &validator{}
	if !slices.Contains(kind.CatalogEntryTypes, it.CatalogEntry.Type) {
		v.add("catalog_entry_type", fmt.Sprintf("%q is not a catalog entry type for %s items", it.CatalogEntry.Type, itemType))
	}
	if it.Detail.Type != kind.DetailType {
		v.add("detail_type", fmt.Sprintf("must be %s for %s collections", kind.DetailType, itemType))
	}
	if err := v.err(); err != nil {
		return err
	}

	entryTable, _ := s.kinds.entryTable(it.CatalogEntry.Type)
	found, err := rowExists(ctx, q, entryTable, it.CatalogEntry.ID)
	if err != nil {
		return fmt.Errorf("vault: resolve catalog entry: %w", err)
	}
	if !found {
		return newError(KindReferential, "catalog_entry", fmt.Sprintf("%s not found", it.CatalogEntry))
	}

	detailTable, _ := s.kinds.detailTable(it.Detail.Type)
	found, err = rowExists(ctx, q, detailTable, it.Detail.ID)
	if err != nil {
		return fmt.Errorf("vault: resolve detail: %w", err)
	}
	if !found {
		return newError(KindReferential, "detail", fmt.Sprintf("%s not found", it.Detail))
	}

	claimed, err := exists(ctx, q,
		`SELECT 1 FROM items WHERE detail_type = ? AND detail_id = ? AND id != ?`,
		it.Detail.Type, it.Detail.ID, it.ID)
	if err != nil {
		return fmt.Errorf("vault: check detail ownership: %w", err)
	}
	if claimed {
		return newError(KindUniqueness, "detail", "is already attached to another item")
	}

	if it.StorageUnitID == "" {
		return nil
	}
	return s.checkStorageScope(ctx, q, it.StorageUnitID, it.CollectionID)
}

// checkStorageScope fails unless unitID is attached to collectionID.
func (s *Store) checkStorageScope(ctx context.Context, q querier, unitID, collectionID string) error {
	found, err := rowExists(ctx, q, "storage_units", unitID)
	if err != nil {
		return fmt.Errorf("vault: resolve storage unit: %w", err)
	}
	if !found {
		return newError(KindReferential, "storage_unit_id", "must exist")
	}

	attached, err := s.collectionIDsForUnit(ctx, q, unitID)
	if err != nil {
		return err
	}
	if slices.Contains(attached, collectionID) {
		return nil
	}
	return &Error{Kind: KindStorageScope, Fields: []FieldError{
		{Field: "storage_unit_id", Reason: fmt.Sprintf("%q must belong to the item's collection", unitID)},
		{Field: "collection_id", Reason: fmt.Sprintf("%q is not attached to storage unit %q", collectionID, unitID)},
	}}
}
