// Package prompts implements MCP prompt handlers for common vault workflows.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AddCardsPrompt handles the add-cards MCP prompt.
// It guides the AI from a card name to a stored item.
type AddCardsPrompt struct{}

// NewAddCardsPrompt creates an AddCardsPrompt.
func NewAddCardsPrompt() *AddCardsPrompt {
	return &AddCardsPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *AddCardsPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("add-cards",
		mcp.WithPromptDescription(
			"Add cards you own to your collection. Finds the printing in the catalog, "+
				"asks about condition and storage, then records the item.",
		),
		mcp.WithArgument("card_name",
			mcp.ArgumentDescription("Name of the card, full or partial"),
		),
		mcp.WithArgument("quantity",
			mcp.ArgumentDescription("How many copies. Default: 1"),
		),
	)
}

// Handle processes the add-cards prompt request.
func (p *AddCardsPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	cardName := ""
	quantity := "1"
	if args := req.Params.Arguments; args != nil {
		if n, ok := args["card_name"]; ok {
			cardName = n
		}
		if q, ok := args["quantity"]; ok && q != "" {
			quantity = q
		}
	}

	find := "1. Ask me which card I want to add, then run `card_search` with that name\n"
	if cardName != "" {
		find = fmt.Sprintf("1. Run `card_search` with query='%s'\n", cardName)
	}

	return &mcp.GetPromptResult{
		Description: "Add cards to a collection",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"I want to add " + quantity + " card(s) to my collection.\n\n" +
						"Please:\n" +
						find +
						"2. If several printings match, show them with set and collector number and ask me which one\n" +
						"3. Run `collection_list` and pick the collection (ask if there is more than one)\n" +
						"4. Ask about condition (NM/LP/MP/HP/DMG), finish (nonfoil/foil/etched), language and where it is stored\n" +
						"5. Run `item_add` with quantity=" + quantity + " and my answers; only use storage units attached to the collection\n" +
						"6. Confirm what was recorded",
				),
			},
		},
	}, nil
}
