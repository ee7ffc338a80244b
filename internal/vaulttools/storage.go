package vaulttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// ─── StorageCreateTool ───────────────────────────────────────────────────────

// StorageCreateTool handles the storage_create MCP tool.
type StorageCreateTool struct {
	store *vault.Store
}

// NewStorageCreateTool creates a StorageCreateTool.
func NewStorageCreateTool(store *vault.Store) *StorageCreateTool {
	return &StorageCreateTool{store: store}
}

// Definition returns the MCP tool definition for storage_create.
func (t *StorageCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("storage_create",
		mcp.WithDescription(
			"Create a storage unit (shelf, box, binder, deck), optionally nested under a parent "+
				"and attached to a collection so its items can be stored there.",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
		mcp.WithString("unit_type", mcp.Required(), mcp.Description("shelf, box, binder or deck")),
		mcp.WithString("parent_id", mcp.Description("Parent storage unit id (omit for a root unit)")),
		mcp.WithString("notes", mcp.Description("Free-form notes")),
		mcp.WithString("collection_id", mcp.Description("Collection to attach the new unit to")),
	)
}

// Handle processes the storage_create tool call.
func (t *StorageCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	colID := req.GetString("collection_id", "")
	unit, err := t.store.CreateStorageUnit(ctx, vault.NewStorageUnit{
		Name:         req.GetString("name", ""),
		UnitType:     req.GetString("unit_type", ""),
		Notes:        req.GetString("notes", ""),
		ParentID:     req.GetString("parent_id", ""),
		CollectionID: colID,
	})
	if err != nil {
		return toolError("create storage unit", err), nil
	}

	msg := fmt.Sprintf("Created %s %q (id: %s)", unit.UnitType, unit.Name, unit.ID)
	if colID != "" {
		msg += fmt.Sprintf(", attached to collection %s", colID)
	}
	return mcp.NewToolResultText(msg), nil
}

// ─── StorageMoveTool ─────────────────────────────────────────────────────────

// StorageMoveTool handles the storage_move MCP tool.
type StorageMoveTool struct {
	store *vault.Store
}

// NewStorageMoveTool creates a StorageMoveTool.
func NewStorageMoveTool(store *vault.Store) *StorageMoveTool {
	return &StorageMoveTool{store: store}
}

// Definition returns the MCP tool definition for storage_move.
func (t *StorageMoveTool) Definition() mcp.Tool {
	return mcp.NewTool("storage_move",
		mcp.WithDescription("Move a storage unit under a new parent, or to the top level. Moves that would create a cycle are rejected."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Storage unit to move")),
		mcp.WithString("parent_id", mcp.Description("New parent id (omit or empty to make it a root)")),
	)
}

// Handle processes the storage_move tool call.
func (t *StorageMoveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	unit, err := t.store.Reparent(ctx, id, req.GetString("parent_id", ""))
	if err != nil {
		return toolError("move storage unit", err), nil
	}
	if unit.ParentID == nil {
		return mcp.NewToolResultText(fmt.Sprintf("Moved %q to the top level", unit.Name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved %q under %s", unit.Name, *unit.ParentID)), nil
}

// ─── StorageAttachTool ───────────────────────────────────────────────────────

// StorageAttachTool handles the storage_attach MCP tool; with detach set it
// removes the attachment instead.
type StorageAttachTool struct {
	store *vault.Store
}

// NewStorageAttachTool creates a StorageAttachTool.
func NewStorageAttachTool(store *vault.Store) *StorageAttachTool {
	return &StorageAttachTool{store: store}
}

// Definition returns the MCP tool definition for storage_attach.
func (t *StorageAttachTool) Definition() mcp.Tool {
	return mcp.NewTool("storage_attach",
		mcp.WithDescription(
			"Attach a storage unit to a collection, or detach it. Items may only be stored in units "+
				"attached to their collection.",
		),
		mcp.WithString("id", mcp.Required(), mcp.Description("Storage unit id")),
		mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection id")),
		mcp.WithBoolean("detach", mcp.Description("Remove the attachment instead (default: false)")),
	)
}

// Handle processes the storage_attach tool call.
func (t *StorageAttachTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	colID := req.GetString("collection_id", "")

	if boolArg(req, "detach", false) {
		if err := t.store.Detach(ctx, id, colID); err != nil {
			return toolError("detach storage unit", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Detached %s from collection %s", id, colID)), nil
	}

	link, err := t.store.Attach(ctx, id, colID)
	if err != nil {
		return toolError("attach storage unit", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Attached %s to collection %s (link: %s)",
		link.StorageUnitID, link.CollectionID, link.ID)), nil
}

// ─── StorageDeleteTool ───────────────────────────────────────────────────────

// StorageDeleteTool handles the storage_delete MCP tool.
type StorageDeleteTool struct {
	store *vault.Store
}

// NewStorageDeleteTool creates a StorageDeleteTool.
func NewStorageDeleteTool(store *vault.Store) *StorageDeleteTool {
	return &StorageDeleteTool{store: store}
}

// Definition returns the MCP tool definition for storage_delete.
func (t *StorageDeleteTool) Definition() mcp.Tool {
	return mcp.NewTool("storage_delete",
		mcp.WithDescription("Delete an empty storage unit. Units with child units or stored items are refused."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Storage unit id")),
	)
}

// Handle processes the storage_delete tool call.
func (t *StorageDeleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	if err := t.store.DeleteStorageUnit(ctx, id); err != nil {
		return toolError("delete storage unit", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted storage unit %s", id)), nil
}

// ─── StorageTreeTool ─────────────────────────────────────────────────────────

// StorageTreeTool handles the storage_tree MCP tool.
type StorageTreeTool struct {
	store *vault.Store
}

// NewStorageTreeTool creates a StorageTreeTool.
func NewStorageTreeTool(store *vault.Store) *StorageTreeTool {
	return &StorageTreeTool{store: store}
}

// Definition returns the MCP tool definition for storage_tree.
func (t *StorageTreeTool) Definition() mcp.Tool {
	return mcp.NewTool("storage_tree",
		mcp.WithDescription("Show the storage hierarchy with item counts, from every root or from one unit."),
		mcp.WithString("id", mcp.Description("Start from this unit and show its path (default: all roots)")),
	)
}

// Handle processes the storage_tree tool call.
func (t *StorageTreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	var start []vault.StorageUnit

	if id := req.GetString("id", ""); id != "" {
		unit, err := t.store.GetStorageUnit(ctx, id)
		if err != nil {
			return toolError("storage tree", err), nil
		}
		ancestors, err := t.store.Ancestors(ctx, id)
		if err != nil {
			return toolError("storage tree", err), nil
		}
		if len(ancestors) > 0 {
			path := make([]string, 0, len(ancestors))
			for i := len(ancestors) - 1; i >= 0; i-- {
				path = append(path, ancestors[i].Name)
			}
			fmt.Fprintf(&b, "Path: %s\n\n", strings.Join(path, " > "))
		}
		start = []vault.StorageUnit{*unit}
	} else {
		roots, err := t.store.Roots(ctx)
		if err != nil {
			return toolError("storage tree", err), nil
		}
		if len(roots) == 0 {
			return mcp.NewToolResultText("No storage units yet."), nil
		}
		start = roots
	}

	for _, u := range start {
		if err := t.render(ctx, &b, u, 0); err != nil {
			return toolError("storage tree", err), nil
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (t *StorageTreeTool) render(ctx context.Context, b *strings.Builder, u vault.StorageUnit, depth int) error {
	items, err := t.store.ItemsInStorageUnit(ctx, u.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "%s- %s [%s] (id: %s, %d items)\n", strings.Repeat("  ", depth), u.Name, u.UnitType, u.ID, len(items))

	children, err := t.store.Children(ctx, u.ID)
	if err != nil {
		return err
	}
	for _, c := range children {
		if err := t.render(ctx, b, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
