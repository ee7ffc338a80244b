package vault

import (
	"github.com/shopspring/decimal"
)

// ─── Enums ───────────────────────────────────────────────────────────────────

// SourceType names where a catalog's canonical entries come from.
type SourceType string

const (
	SourceMTGJSON SourceType = "mtgjson"
	SourceAPI     SourceType = "api"
	SourceCustom  SourceType = "custom"
)

// SourceTypes lists the accepted catalog source types.
var SourceTypes = []string{string(SourceMTGJSON), string(SourceAPI), string(SourceCustom)}

// Condition grades: NM (Near Mint), LP (Lightly Played), MP (Moderately
// Played), HP (Heavily Played), DMG (Damaged).
type Condition string

const (
	ConditionNM  Condition = "NM"
	ConditionLP  Condition = "LP"
	ConditionMP  Condition = "MP"
	ConditionHP  Condition = "HP"
	ConditionDMG Condition = "DMG"
)

// Conditions lists the stored condition codes, best first.
var Conditions = []string{"NM", "LP", "MP", "HP", "DMG"}

// Finish is the printing finish of a physical card.
type Finish string

const (
	FinishNonfoil Finish = "nonfoil"
	FinishFoil    Finish = "foil"
	FinishEtched  Finish = "etched"
)

// Finishes lists the stored finishes.
var Finishes = []string{"nonfoil", "foil", "etched"}

// Languages lists the stored card language codes.
var Languages = []string{"EN", "JP", "DE", "FR", "IT", "ES", "PT", "KO", "RU", "ZHS", "ZHT"}

// UnitTypes is the documented set of storage unit types. Only presence is
// enforced; see DESIGN.md.
var UnitTypes = []string{"shelf", "box", "binder", "deck"}

// ─── Catalogs & collections ──────────────────────────────────────────────────

// Catalog is the authoritative source of item identities for one collection.
type Catalog struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	SourceType   SourceType     `json:"source_type"`
	SourceConfig map[string]any `json:"source_config"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// NewCatalog holds the input for creating a catalog.
type NewCatalog struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	SourceType   SourceType     `json:"source_type"`
	SourceConfig map[string]any `json:"source_config,omitempty"`
}

// CatalogUpdate holds partial update fields for a catalog.
type CatalogUpdate struct {
	Name         *string        `json:"name,omitempty"`
	SourceConfig map[string]any `json:"source_config,omitempty"`
}

// Collection is a set of items of one item type backed by one catalog.
type Collection struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ItemType    string  `json:"item_type"`
	CatalogID   string  `json:"catalog_id"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// NewCollection holds the input for creating a collection.
type NewCollection struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ItemType    string `json:"item_type"`
	CatalogID   string `json:"catalog_id"`
}

// CollectionUpdate holds partial update fields for a collection.
type CollectionUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ─── Storage ─────────────────────────────────────────────────────────────────

// StorageUnit is a nestable container (shelf, box, binder, deck).
type StorageUnit struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	UnitType  string  `json:"unit_type"`
	Notes     *string `json:"notes,omitempty"`
	ParentID  *string `json:"parent_id,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// NewStorageUnit holds the input for creating a storage unit.
type NewStorageUnit struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	UnitType string `json:"unit_type"`
	Notes    string `json:"notes,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	// CollectionID, when set, attaches the new unit to that collection in
	// the same transaction.
	CollectionID string `json:"collection_id,omitempty"`
}

// StorageUnitUpdate holds partial update fields for a storage unit. The
// parent is changed with Reparent only.
type StorageUnitUpdate struct {
	Name     *string `json:"name,omitempty"`
	UnitType *string `json:"unit_type,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// CollectionStorageUnit attaches a storage unit to a collection.
type CollectionStorageUnit struct {
	ID            string `json:"id"`
	CollectionID  string `json:"collection_id"`
	StorageUnitID string `json:"storage_unit_id"`
	CreatedAt     string `json:"created_at"`
}

// ─── Items ───────────────────────────────────────────────────────────────────

// Ref is a typed reference: a type discriminator plus an id.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// IsZero reports whether neither part of the reference is set.
func (r Ref) IsZero() bool { return r.Type == "" && r.ID == "" }

func (r Ref) String() string { return r.Type + ":" + r.ID }

// Item is one physical instance (or counted group) of a catalog entry.
type Item struct {
	ID               string           `json:"id"`
	CollectionID     string           `json:"collection_id"`
	StorageUnitID    *string          `json:"storage_unit_id,omitempty"`
	CatalogEntry     Ref              `json:"catalog_entry"`
	Detail           Ref              `json:"detail"`
	Quantity         int              `json:"quantity"`
	AcquisitionPrice *decimal.Decimal `json:"acquisition_price,omitempty"`
	AcquisitionDate  *string          `json:"acquisition_date,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
}

// NewItem holds the input for creating an item. A nil Quantity defaults to 1.
// AcquisitionDate uses the YYYY-MM-DD layout.
type NewItem struct {
	ID               string           `json:"id,omitempty"`
	CollectionID     string           `json:"collection_id"`
	StorageUnitID    string           `json:"storage_unit_id,omitempty"`
	CatalogEntry     Ref              `json:"catalog_entry"`
	Detail           Ref              `json:"detail"`
	Quantity         *int             `json:"quantity,omitempty"`
	AcquisitionPrice *decimal.Decimal `json:"acquisition_price,omitempty"`
	AcquisitionDate  string           `json:"acquisition_date,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// ItemUpdate holds partial update fields for an item. StorageUnitID set to
// an empty string removes the item from its storage unit.
type ItemUpdate struct {
	CollectionID     *string          `json:"collection_id,omitempty"`
	StorageUnitID    *string          `json:"storage_unit_id,omitempty"`
	CatalogEntry     *Ref             `json:"catalog_entry,omitempty"`
	Quantity         *int             `json:"quantity,omitempty"`
	AcquisitionPrice *decimal.Decimal `json:"acquisition_price,omitempty"`
	AcquisitionDate  *string          `json:"acquisition_date,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
}

// MTGCardDetail holds the physical-instance attributes of an MTG card item.
// GradingService and Grade are meaningful only when Graded is set, but the
// store does not enforce that.
type MTGCardDetail struct {
	ID             string    `json:"id"`
	Condition      Condition `json:"condition"`
	Finish         Finish    `json:"finish"`
	Language       string    `json:"language"`
	Signed         bool      `json:"signed"`
	Altered        bool      `json:"altered"`
	Graded         bool      `json:"graded"`
	GradingService *string   `json:"grading_service,omitempty"`
	Grade          *string   `json:"grade,omitempty"`
	CreatedAt      string    `json:"created_at"`
	UpdatedAt      string    `json:"updated_at"`
}

// NewMTGCardDetail holds the input for a detail record. Empty enum fields
// take their defaults (NM, nonfoil, EN).
type NewMTGCardDetail struct {
	ID             string    `json:"id,omitempty"`
	Condition      Condition `json:"condition,omitempty"`
	Finish         Finish    `json:"finish,omitempty"`
	Language       string    `json:"language,omitempty"`
	Signed         bool      `json:"signed,omitempty"`
	Altered        bool      `json:"altered,omitempty"`
	Graded         bool      `json:"graded,omitempty"`
	GradingService string    `json:"grading_service,omitempty"`
	Grade          string    `json:"grade,omitempty"`
}

// MTGCardDetailUpdate holds partial update fields for a detail record.
type MTGCardDetailUpdate struct {
	Condition      *Condition `json:"condition,omitempty"`
	Finish         *Finish    `json:"finish,omitempty"`
	Language       *string    `json:"language,omitempty"`
	Signed         *bool      `json:"signed,omitempty"`
	Altered        *bool      `json:"altered,omitempty"`
	Graded         *bool      `json:"graded,omitempty"`
	GradingService *string    `json:"grading_service,omitempty"`
	Grade          *string    `json:"grade,omitempty"`
}

// ─── Catalog cards ───────────────────────────────────────────────────────────

// MTGSet is a printed set.
type MTGSet struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// MTGCard is a canonical catalog card. It is the source of truth for the
// name search index.
type MTGCard struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SetCode         string `json:"set_code,omitempty"`
	ManaCost        string `json:"mana_cost,omitempty"`
	TypeLine        string `json:"type_line,omitempty"`
	Rarity          string `json:"rarity,omitempty"`
	CollectorNumber string `json:"collector_number,omitempty"`
}

// MTGCardUpdate holds partial update fields for a card.
type MTGCardUpdate struct {
	Name            *string `json:"name,omitempty"`
	SetCode         *string `json:"set_code,omitempty"`
	ManaCost        *string `json:"mana_cost,omitempty"`
	TypeLine        *string `json:"type_line,omitempty"`
	Rarity          *string `json:"rarity,omitempty"`
	CollectorNumber *string `json:"collector_number,omitempty"`
}

// CardResult is a search hit.
type CardResult struct {
	MTGCard
	Exact bool    `json:"exact"`
	Rank  float64 `json:"rank"`
}

// IndexReport summarises differences between the card table and its index.
type IndexReport struct {
	Cards   int `json:"cards"`
	Indexed int `json:"indexed"`
	Missing int `json:"missing"`
	Stale   int `json:"stale"`
	Orphans int `json:"orphans"`
}

// Consistent reports whether the index mirrors the card table exactly.
func (r IndexReport) Consistent() bool {
	return r.Missing == 0 && r.Stale == 0 && r.Orphans == 0 && r.Cards == r.Indexed
}
