// Package resources implements MCP resource handlers over the vault.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (cardvault://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// Resource URIs.
const (
	CollectionsURI = "cardvault://collections"
	StorageURI     = "cardvault://storage"
)

// Handler manages vault resource endpoints.
type Handler struct {
	store *vault.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *vault.Store) *Handler {
	return &Handler{store: store}
}

// collectionView is one collection with its catalog and storage.
type collectionView struct {
	vault.Collection
	Catalog      *vault.Catalog      `json:"catalog,omitempty"`
	StorageUnits []vault.StorageUnit `json:"storage_units"`
	Items        int                 `json:"items"`
	Cards        int                 `json:"cards"`
}

// storageNode is a storage unit with its subtree.
type storageNode struct {
	vault.StorageUnit
	Children []storageNode `json:"children,omitempty"`
}

// CollectionsResource returns the MCP resource definition for collections.
func (h *Handler) CollectionsResource() mcp.Resource {
	return mcp.NewResource(
		CollectionsURI,
		"Collections",
		mcp.WithResourceDescription("Every collection with its catalog, attached storage units and item totals"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCollections returns all collections as JSON.
func (h *Handler) HandleCollections(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cols, err := h.store.ListCollections(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	views := make([]collectionView, 0, len(cols))
	for _, c := range cols {
		v := collectionView{Collection: c, StorageUnits: []vault.StorageUnit{}}
		if cat, err := h.store.GetCatalog(ctx, c.CatalogID); err == nil {
			v.Catalog = cat
		}
		units, err := h.store.StorageUnitsForCollection(ctx, c.ID)
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		v.StorageUnits = append(v.StorageUnits, units...)

		items, err := h.store.ItemsInCollection(ctx, c.ID)
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		v.Items = len(items)
		for _, it := range items {
			v.Cards += it.Quantity
		}
		views = append(views, v)
	}
	return jsonResource(req.Params.URI, views)
}

// StorageResource returns the MCP resource definition for the storage tree.
func (h *Handler) StorageResource() mcp.Resource {
	return mcp.NewResource(
		StorageURI,
		"Storage hierarchy",
		mcp.WithResourceDescription("All storage units as a tree, roots first"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStorage returns the storage forest as JSON.
func (h *Handler) HandleStorage(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	roots, err := h.store.Roots(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	forest := make([]storageNode, 0, len(roots))
	for _, r := range roots {
		n, err := h.subtree(ctx, r)
		if err != nil {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		forest = append(forest, n)
	}
	return jsonResource(req.Params.URI, forest)
}

func (h *Handler) subtree(ctx context.Context, u vault.StorageUnit) (storageNode, error) {
	node := storageNode{StorageUnit: u}
	children, err := h.store.Children(ctx, u.ID)
	if err != nil {
		return node, err
	}
	for _, c := range children {
		n, err := h.subtree(ctx, c)
		if err != nil {
			return node, err
		}
		node.Children = append(node.Children, n)
	}
	return node, nil
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
