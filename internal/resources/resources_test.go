package resources

import (
	"context"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/cardvault/internal/vault"
)

func newHandler(t *testing.T) (*Handler, *vault.Store) {
	t.Helper()
	s, err := vault.New(vault.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewHandler(s), s
}

func readText(t *testing.T, contents []mcp.ResourceContents) string {
	t.Helper()
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok, "expected text contents, got %T", contents[0])
	return tc.Text
}

func TestHandleCollections(t *testing.T) {
	h, s := newHandler(t)
	ctx := context.Background()
	_, col, err := s.SeedDefaults(ctx)
	require.NoError(t, err)
	box, err := s.CreateStorageUnit(ctx, vault.NewStorageUnit{Name: "Box", UnitType: "box"})
	require.NoError(t, err)
	_, err = s.Attach(ctx, box.ID, col.ID)
	require.NoError(t, err)

	var req mcp.ReadResourceRequest
	req.Params.URI = CollectionsURI
	contents, err := h.HandleCollections(ctx, req)
	require.NoError(t, err)

	var got []collectionView
	require.NoError(t, json.Unmarshal([]byte(readText(t, contents)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, vault.DefaultCollectionName, got[0].Name)
	require.NotNil(t, got[0].Catalog)
	assert.Equal(t, vault.DefaultCatalogName, got[0].Catalog.Name)
	require.Len(t, got[0].StorageUnits, 1)
	assert.Equal(t, "Box", got[0].StorageUnits[0].Name)
	assert.Zero(t, got[0].Items)
}

func TestHandleStorage(t *testing.T) {
	h, s := newHandler(t)
	ctx := context.Background()
	shelf, err := s.CreateStorageUnit(ctx, vault.NewStorageUnit{Name: "Shelf", UnitType: "shelf"})
	require.NoError(t, err)
	_, err = s.CreateStorageUnit(ctx, vault.NewStorageUnit{Name: "Deck Box", UnitType: "box", ParentID: shelf.ID})
	require.NoError(t, err)

	var req mcp.ReadResourceRequest
	req.Params.URI = StorageURI
	contents, err := h.HandleStorage(ctx, req)
	require.NoError(t, err)

	var got []storageNode
	require.NoError(t, json.Unmarshal([]byte(readText(t, contents)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Shelf", got[0].Name)
	require.Len(t, got[0].Children, 1)
	assert.Equal(t, "Deck Box", got[0].Children[0].Name)
}

func TestDefinitions(t *testing.T) {
	h, _ := newHandler(t)
	assert.Equal(t, CollectionsURI, h.CollectionsResource().URI)
	assert.Equal(t, StorageURI, h.StorageResource().URI)
}
