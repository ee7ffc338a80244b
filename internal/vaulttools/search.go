package vaulttools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// CardSearchTool handles the card_search MCP tool.
type CardSearchTool struct {
	store *vault.Store
}

// NewCardSearchTool creates a CardSearchTool.
func NewCardSearchTool(store *vault.Store) *CardSearchTool {
	return &CardSearchTool{store: store}
}

// Definition returns the MCP tool definition for card_search.
func (t *CardSearchTool) Definition() mcp.Tool {
	return mcp.NewTool("card_search",
		mcp.WithDescription(
			"Search the Magic: The Gathering catalog by card name. Exact name matches come first, "+
				"then partial matches. Use the returned card id as catalog_entry_id when adding items.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Full or partial card name, case-insensitive"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: configured max_search_results)"),
		),
	)
}

// Handle processes the card_search tool call.
func (t *CardSearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	results, err := t.store.Search(ctx, query, intArg(req, "limit", 0))
	if err != nil {
		return toolError("search", err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No cards found matching %q.", query)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d cards:\n\n", len(results))
	for i, r := range results {
		marker := ""
		if r.Exact {
			marker = " (exact)"
		}
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, r.Name, marker)
		fmt.Fprintf(&b, "   id: %s", r.ID)
		if r.SetCode != "" {
			fmt.Fprintf(&b, " | set: %s", r.SetCode)
			if r.CollectorNumber != "" {
				fmt.Fprintf(&b, " #%s", r.CollectorNumber)
			}
		}
		if r.ManaCost != "" {
			fmt.Fprintf(&b, " | cost: %s", r.ManaCost)
		}
		if r.TypeLine != "" {
			fmt.Fprintf(&b, " | %s", r.TypeLine)
		}
		if r.Rarity != "" {
			fmt.Fprintf(&b, " | %s", r.Rarity)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── IndexStatusTool ─────────────────────────────────────────────────────────

// IndexStatusTool handles the card_index_status MCP tool. With repair set it
// rebuilds the index before reporting.
type IndexStatusTool struct {
	store *vault.Store
}

// NewIndexStatusTool creates an IndexStatusTool.
func NewIndexStatusTool(store *vault.Store) *IndexStatusTool {
	return &IndexStatusTool{store: store}
}

// Definition returns the MCP tool definition for card_index_status.
func (t *IndexStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("card_index_status",
		mcp.WithDescription("Compare the card name index with the card table, optionally rebuilding it first."),
		mcp.WithBoolean("repair",
			mcp.Description("Rebuild the index from the card table before checking (default: false)"),
		),
	)
}

// Handle processes the card_index_status tool call.
func (t *IndexStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	if boolArg(req, "repair", false) {
		n, err := t.store.Reindex(ctx)
		if err != nil {
			return toolError("reindex", err), nil
		}
		fmt.Fprintf(&b, "Rebuilt index with %d cards.\n", n)
	}

	report, err := t.store.VerifyIndex(ctx)
	if err != nil {
		return toolError("verify index", err), nil
	}
	status := "consistent"
	if !report.Consistent() {
		status = "out of sync"
	}
	fmt.Fprintf(&b, "Index %s: cards=%d indexed=%d missing=%d stale=%d orphans=%d",
		status, report.Cards, report.Indexed, report.Missing, report.Stale, report.Orphans)
	return mcp.NewToolResultText(b.String()), nil
}
