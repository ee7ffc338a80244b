package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	if len(r.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(r.Messages))
	}
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", r.Messages[0].Content)
	}
	return tc.Text
}

func TestAddCardsPrompt(t *testing.T) {
	p := NewAddCardsPrompt()
	if p.Definition().Name != "add-cards" {
		t.Errorf("name = %q", p.Definition().Name)
	}

	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{"card_name": "Lightning Bolt", "quantity": "4"}
	r, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, r)
	for _, want := range []string{"query='Lightning Bolt'", "quantity=4", "item_add"} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}
}

func TestAddCardsPrompt_NoArguments(t *testing.T) {
	r, err := NewAddCardsPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	text := promptText(t, r)
	if !strings.Contains(text, "Ask me which card") || !strings.Contains(text, "quantity=1") {
		t.Errorf("unexpected prompt:\n%s", text)
	}
}

func TestSummaryPrompt(t *testing.T) {
	p := NewSummaryPrompt()
	if p.Definition().Name != "collection-summary" {
		t.Errorf("name = %q", p.Definition().Name)
	}
	r, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !strings.Contains(promptText(t, r), "storage_tree") {
		t.Error("summary should use storage_tree")
	}
}
