package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// SummaryPrompt handles the collection-summary MCP prompt.
type SummaryPrompt struct{}

// NewSummaryPrompt creates a SummaryPrompt.
func NewSummaryPrompt() *SummaryPrompt {
	return &SummaryPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *SummaryPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("collection-summary",
		mcp.WithPromptDescription(
			"Summarise your collections: totals, where things are stored, and anything that looks off.",
		),
	)
}

// Handle processes the collection-summary prompt request.
func (p *SummaryPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Collection summary",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `collection_list` and `storage_tree` to check my collections.\n\n" +
						"Then:\n" +
						"1. Show each collection with its item and card totals\n" +
						"2. Show the storage hierarchy and which units hold items\n" +
						"3. Point out empty storage units and items not stored anywhere\n" +
						"4. Run `card_index_status` and tell me if the card index needs a repair",
				),
			},
		},
	}, nil
}
