package vaulttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// ─── ItemAddTool ─────────────────────────────────────────────────────────────

// ItemAddTool handles the item_add MCP tool.
type ItemAddTool struct {
	store *vault.Store
}

// NewItemAddTool creates an ItemAddTool.
func NewItemAddTool(store *vault.Store) *ItemAddTool {
	return &ItemAddTool{store: store}
}

// Definition returns the MCP tool definition for item_add.
func (t *ItemAddTool) Definition() mcp.Tool {
	return mcp.NewTool("item_add",
		mcp.WithDescription(
			"Add physical copies of a catalog card to a collection. Find the card_id with card_search "+
				"and the collection_id with collection_list. The storage unit, if given, must be attached "+
				"to the collection.",
		),
		mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection id")),
		mcp.WithString("card_id", mcp.Required(), mcp.Description("Catalog card id")),
		mcp.WithString("storage_unit_id", mcp.Description("Storage unit holding the copies")),
		mcp.WithNumber("quantity", mcp.Description("Number of copies (default: 1)")),
		mcp.WithString("condition", mcp.Description("NM, LP, MP, HP or DMG (default: NM)")),
		mcp.WithString("finish", mcp.Description("nonfoil, foil or etched (default: nonfoil)")),
		mcp.WithString("language", mcp.Description("EN, JP, DE, FR, IT, ES, PT, KO, RU, ZHS or ZHT (default: EN)")),
		mcp.WithBoolean("signed", mcp.Description("Signed copy")),
		mcp.WithBoolean("altered", mcp.Description("Altered art")),
		mcp.WithBoolean("graded", mcp.Description("Professionally graded")),
		mcp.WithString("grading_service", mcp.Description("Grading company, e.g. PSA")),
		mcp.WithString("grade", mcp.Description("Assigned grade, e.g. 9.5")),
		mcp.WithString("acquisition_price", mcp.Description("Price paid per copy, e.g. 12.50")),
		mcp.WithString("acquisition_date", mcp.Description("Date acquired, YYYY-MM-DD")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
	)
}

// Handle processes the item_add tool call.
func (t *ItemAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	price, err := priceArg(req, "acquisition_price")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	it, err := t.store.AddMTGCardItem(ctx, vault.NewItem{
		CollectionID:     req.GetString("collection_id", ""),
		StorageUnitID:    req.GetString("storage_unit_id", ""),
		CatalogEntry:     vault.Ref{Type: vault.CatalogEntryMTGCard, ID: req.GetString("card_id", "")},
		Quantity:         intPtrArg(req, "quantity"),
		AcquisitionPrice: price,
		AcquisitionDate:  req.GetString("acquisition_date", ""),
		Notes:            req.GetString("notes", ""),
	}, vault.NewMTGCardDetail{
		Condition:      vault.Condition(req.GetString("condition", "")),
		Finish:         vault.Finish(req.GetString("finish", "")),
		Language:       req.GetString("language", ""),
		Signed:         boolArg(req, "signed", false),
		Altered:        boolArg(req, "altered", false),
		Graded:         boolArg(req, "graded", false),
		GradingService: req.GetString("grading_service", ""),
		Grade:          req.GetString("grade", ""),
	})
	if err != nil {
		return toolError("add item", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Added item %s\n", it.ID)
	writeItem(ctx, t.store, &b, *it)
	return mcp.NewToolResultText(b.String()), nil
}

// ─── ItemUpdateTool ──────────────────────────────────────────────────────────

// ItemUpdateTool handles the item_update MCP tool.
type ItemUpdateTool struct {
	store *vault.Store
}

// NewItemUpdateTool creates an ItemUpdateTool.
func NewItemUpdateTool(store *vault.Store) *ItemUpdateTool {
	return &ItemUpdateTool{store: store}
}

// Definition returns the MCP tool definition for item_update.
func (t *ItemUpdateTool) Definition() mcp.Tool {
	return mcp.NewTool("item_update",
		mcp.WithDescription(
			"Update an item and its physical details. Only the given fields change. "+
				"Pass storage_unit_id as an empty string to take the item out of storage.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
		mcp.WithString("storage_unit_id", mcp.Description("New storage unit id, or empty to clear")),
		mcp.WithNumber("quantity", mcp.Description("New quantity")),
		mcp.WithString("condition", mcp.Description("NM, LP, MP, HP or DMG")),
		mcp.WithString("finish", mcp.Description("nonfoil, foil or etched")),
		mcp.WithString("language", mcp.Description("Language code")),
		mcp.WithBoolean("signed", mcp.Description("Signed copy")),
		mcp.WithBoolean("altered", mcp.Description("Altered art")),
		mcp.WithBoolean("graded", mcp.Description("Professionally graded")),
		mcp.WithString("grading_service", mcp.Description("Grading company")),
		mcp.WithString("grade", mcp.Description("Assigned grade")),
		mcp.WithString("acquisition_price", mcp.Description("Price paid per copy")),
		mcp.WithString("acquisition_date", mcp.Description("Date acquired, YYYY-MM-DD")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
	)
}

// Handle processes the item_update tool call. Item fields are written
// first; detail fields follow only when the item update succeeded.
func (t *ItemUpdateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	price, err := priceArg(req, "acquisition_price")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	du := vault.MTGCardDetailUpdate{
		Language:       stringPtrArg(req, "language"),
		Signed:         boolPtrArg(req, "signed"),
		Altered:        boolPtrArg(req, "altered"),
		Graded:         boolPtrArg(req, "graded"),
		GradingService: stringPtrArg(req, "grading_service"),
		Grade:          stringPtrArg(req, "grade"),
	}
	if c := stringPtrArg(req, "condition"); c != nil {
		cond := vault.Condition(*c)
		du.Condition = &cond
	}
	if f := stringPtrArg(req, "finish"); f != nil {
		fin := vault.Finish(*f)
		du.Finish = &fin
	}

	it, err := t.store.UpdateMTGCardItem(ctx, id, vault.ItemUpdate{
		StorageUnitID:    stringPtrArg(req, "storage_unit_id"),
		Quantity:         intPtrArg(req, "quantity"),
		AcquisitionPrice: price,
		AcquisitionDate:  stringPtrArg(req, "acquisition_date"),
		Notes:            stringPtrArg(req, "notes"),
	}, du)
	if err != nil {
		return toolError("update item", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Updated item %s\n", it.ID)
	writeItem(ctx, t.store, &b, *it)
	return mcp.NewToolResultText(b.String()), nil
}

// ─── ItemRemoveTool ──────────────────────────────────────────────────────────

// ItemRemoveTool handles the item_remove MCP tool.
type ItemRemoveTool struct {
	store *vault.Store
}

// NewItemRemoveTool creates an ItemRemoveTool.
func NewItemRemoveTool(store *vault.Store) *ItemRemoveTool {
	return &ItemRemoveTool{store: store}
}

// Definition returns the MCP tool definition for item_remove.
func (t *ItemRemoveTool) Definition() mcp.Tool {
	return mcp.NewTool("item_remove",
		mcp.WithDescription("Remove an item and its physical details from the collection."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	)
}

// Handle processes the item_remove tool call.
func (t *ItemRemoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.store.DeleteItem(ctx, id); err != nil {
		return toolError("remove item", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed item %s", id)), nil
}

// ─── ItemListTool ────────────────────────────────────────────────────────────

// ItemListTool handles the item_list MCP tool.
type ItemListTool struct {
	store *vault.Store
}

// NewItemListTool creates an ItemListTool.
func NewItemListTool(store *vault.Store) *ItemListTool {
	return &ItemListTool{store: store}
}

// Definition returns the MCP tool definition for item_list.
func (t *ItemListTool) Definition() mcp.Tool {
	return mcp.NewTool("item_list",
		mcp.WithDescription("List items in a collection, in a storage unit, or owned copies of one card. Give exactly one filter."),
		mcp.WithString("collection_id", mcp.Description("List items of this collection")),
		mcp.WithString("storage_unit_id", mcp.Description("List items stored in this unit")),
		mcp.WithString("card_id", mcp.Description("List owned copies of this catalog card")),
	)
}

// Handle processes the item_list tool call.
func (t *ItemListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	colID := req.GetString("collection_id", "")
	unitID := req.GetString("storage_unit_id", "")
	cardID := req.GetString("card_id", "")

	set := 0
	for _, v := range []string{colID, unitID, cardID} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return mcp.NewToolResultError("give exactly one of 'collection_id', 'storage_unit_id' or 'card_id'"), nil
	}

	var (
		items []vault.Item
		err   error
	)
	switch {
	case colID != "":
		items, err = t.store.ItemsInCollection(ctx, colID)
	case unitID != "":
		items, err = t.store.ItemsInStorageUnit(ctx, unitID)
	default:
		items, err = t.store.ItemsForCatalogEntry(ctx, vault.Ref{Type: vault.CatalogEntryMTGCard, ID: cardID})
	}
	if err != nil {
		return toolError("list items", err), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("No items found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d items:\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "\n[%s]\n", it.ID)
		writeItem(ctx, t.store, &b, it)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// writeItem renders an item with its card name and physical details. Lookup
// failures fall back to the raw references.
func writeItem(ctx context.Context, store *vault.Store, b *strings.Builder, it vault.Item) {
	name := it.CatalogEntry.String()
	if it.CatalogEntry.Type == vault.CatalogEntryMTGCard {
		if c, err := store.GetCard(ctx, it.CatalogEntry.ID); err == nil {
			name = c.Name
			if c.SetCode != "" {
				name += " (" + c.SetCode + ")"
			}
		}
	}
	fmt.Fprintf(b, "%dx %s\n", it.Quantity, name)

	if it.Detail.Type == vault.DetailMTGCard {
		if d, err := store.GetMTGCardDetail(ctx, it.Detail.ID); err == nil {
			fmt.Fprintf(b, "   %s %s %s", d.Condition, d.Finish, d.Language)
			if d.Signed {
				b.WriteString(" signed")
			}
			if d.Altered {
				b.WriteString(" altered")
			}
			if d.Graded {
				fmt.Fprintf(b, " graded %s %s", deref(d.GradingService), deref(d.Grade))
			}
			b.WriteString("\n")
		}
	}

	if it.StorageUnitID != nil {
		fmt.Fprintf(b, "   storage: %s\n", *it.StorageUnitID)
	}
	if it.AcquisitionPrice != nil {
		fmt.Fprintf(b, "   paid: %s", it.AcquisitionPrice.StringFixed(2))
		if it.AcquisitionDate != nil {
			fmt.Fprintf(b, " on %s", *it.AcquisitionDate)
		}
		b.WriteString("\n")
	} else if it.AcquisitionDate != nil {
		fmt.Fprintf(b, "   acquired: %s\n", *it.AcquisitionDate)
	}
	if n := deref(it.Notes); n != "" {
		fmt.Fprintf(b, "   notes: %s\n", n)
	}
}
