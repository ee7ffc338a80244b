// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the vault and injects it into the
// tools, prompts and resources that depend on it. No business logic lives
// here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/cardvault/internal/config"
	"github.com/HendryAvila/cardvault/internal/prompts"
	"github.com/HendryAvila/cardvault/internal/resources"
	"github.com/HendryAvila/cardvault/internal/vault"
	"github.com/HendryAvila/cardvault/internal/vaulttools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Name is the server name reported to MCP clients.
const Name = "cardvault"

// New opens the vault described by cfg and returns the MCP server with all
// tools, prompts and resources registered.
//
// The returned cleanup function closes the vault and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := vault.New(cfg.Vault(logger))
	if err != nil {
		return nil, noop, fmt.Errorf("opening vault: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("vault close", "err", err)
		}
	}

	return NewWithStore(store), cleanup, nil
}

// NewWithStore builds the MCP server around an already opened store. The
// caller keeps ownership of the store.
func NewWithStore(store *vault.Store) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, store)

	// --- Register prompts ---

	addCards := prompts.NewAddCardsPrompt()
	s.AddPrompt(addCards.Definition(), addCards.Handle)

	summary := prompts.NewSummaryPrompt()
	s.AddPrompt(summary.Definition(), summary.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.CollectionsResource(), resourceHandler.HandleCollections)
	s.AddResource(resourceHandler.StorageResource(), resourceHandler.HandleStorage)

	return s
}

// noop is the cleanup returned when the vault could not be opened.
func noop() {}

// registerTools registers every vault MCP tool with the server.
func registerTools(s *server.MCPServer, store *vault.Store) {
	// --- Catalog ---
	cardSearch := vaulttools.NewCardSearchTool(store)
	s.AddTool(cardSearch.Definition(), cardSearch.Handle)

	indexStatus := vaulttools.NewIndexStatusTool(store)
	s.AddTool(indexStatus.Definition(), indexStatus.Handle)

	// --- Collections ---
	collectionList := vaulttools.NewCollectionListTool(store)
	s.AddTool(collectionList.Definition(), collectionList.Handle)

	// --- Storage ---
	storageCreate := vaulttools.NewStorageCreateTool(store)
	s.AddTool(storageCreate.Definition(), storageCreate.Handle)

	storageMove := vaulttools.NewStorageMoveTool(store)
	s.AddTool(storageMove.Definition(), storageMove.Handle)

	storageAttach := vaulttools.NewStorageAttachTool(store)
	s.AddTool(storageAttach.Definition(), storageAttach.Handle)

	storageDelete := vaulttools.NewStorageDeleteTool(store)
	s.AddTool(storageDelete.Definition(), storageDelete.Handle)

	storageTree := vaulttools.NewStorageTreeTool(store)
	s.AddTool(storageTree.Definition(), storageTree.Handle)

	// --- Items ---
	itemAdd := vaulttools.NewItemAddTool(store)
	s.AddTool(itemAdd.Definition(), itemAdd.Handle)

	itemUpdate := vaulttools.NewItemUpdateTool(store)
	s.AddTool(itemUpdate.Definition(), itemUpdate.Handle)

	itemRemove := vaulttools.NewItemRemoveTool(store)
	s.AddTool(itemRemove.Definition(), itemRemove.Handle)

	itemList := vaulttools.NewItemListTool(store)
	s.AddTool(itemList.Definition(), itemList.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use cardvault.
func serverInstructions() string {
	return `You have access to cardvault, a catalog of Magic: The Gathering cards and the
user's physical collection.

## Model
- The catalog holds every printing (one card id per printing). It is read-only here.
- A collection holds items. An item is one or more physical copies of one printing,
  with condition, finish, language and grading details.
- Storage units (shelf, box, binder, deck) nest into a tree. An item can only be
  stored in a unit attached to its collection.

## Workflow
1. Use card_search to find the card id. Exact name matches are listed first.
   When several printings match, ask the user which set they own.
2. Use collection_list to find the collection id and its attached storage.
3. Use item_add to record the copies. Create storage with storage_create
   (pass collection_id to attach it) before storing items there.
4. Use item_list and storage_tree to answer "what do I own" and "where is it".

## Errors
Tool errors name the rule that failed and each offending field:
- validation_failed: a value is missing or not allowed
- referential_violation: an id does not exist, or a record is still in use
- storage_scope_violation: the storage unit is not attached to the collection
- has_children: a storage unit still contains other units
Fix the named fields and retry; never guess ids.`
}
