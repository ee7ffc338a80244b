package vaulttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// CollectionListTool handles the collection_list MCP tool.
type CollectionListTool struct {
	store *vault.Store
}

// NewCollectionListTool creates a CollectionListTool.
func NewCollectionListTool(store *vault.Store) *CollectionListTool {
	return &CollectionListTool{store: store}
}

// Definition returns the MCP tool definition for collection_list.
func (t *CollectionListTool) Definition() mcp.Tool {
	return mcp.NewTool("collection_list",
		mcp.WithDescription(
			"List collections with their catalog, item count and attached storage units. "+
				"Call this first to find the collection_id needed by item and storage tools.",
		),
	)
}

// Handle processes the collection_list tool call.
func (t *CollectionListTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cols, err := t.store.ListCollections(ctx)
	if err != nil {
		return toolError("list collections", err), nil
	}
	if len(cols) == 0 {
		return mcp.NewToolResultText("No collections yet. Run `cardvault seed` to create the default one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d collections:\n", len(cols))
	for _, c := range cols {
		fmt.Fprintf(&b, "\n## %s\n", c.Name)
		fmt.Fprintf(&b, "id: %s | item_type: %s\n", c.ID, c.ItemType)
		if d := deref(c.Description); d != "" {
			fmt.Fprintf(&b, "%s\n", d)
		}

		if cat, err := t.store.GetCatalog(ctx, c.CatalogID); err == nil {
			fmt.Fprintf(&b, "catalog: %s (%s)", cat.Name, cat.SourceType)
			if v, ok := cat.SourceConfig["version"].(string); ok && v != "" {
				fmt.Fprintf(&b, " version %s", v)
			}
			b.WriteString("\n")
		}

		items, err := t.store.ItemsInCollection(ctx, c.ID)
		if err != nil {
			return toolError("list items", err), nil
		}
		total := 0
		for _, it := range items {
			total += it.Quantity
		}
		fmt.Fprintf(&b, "items: %d records, %d cards\n", len(items), total)

		units, err := t.store.StorageUnitsForCollection(ctx, c.ID)
		if err != nil {
			return toolError("list storage units", err), nil
		}
		if len(units) > 0 {
			names := make([]string, 0, len(units))
			for _, u := range units {
				names = append(names, fmt.Sprintf("%s [%s] (%s)", u.Name, u.UnitType, u.ID))
			}
			fmt.Fprintf(&b, "storage: %s\n", strings.Join(names, ", "))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}
