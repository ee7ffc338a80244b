package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/cardvault/internal/config"
)

func TestNew_RegistersTools(t *testing.T) {
	s, cleanup, err := New(config.Config{InMemory: true, MaxSearchResults: 10}, nil)
	require.NoError(t, err)
	defer cleanup()

	tools := s.ListTools()
	for _, name := range []string{
		"card_search", "card_index_status", "collection_list",
		"storage_create", "storage_move", "storage_attach", "storage_delete", "storage_tree",
		"item_add", "item_update", "item_remove", "item_list",
	} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 12)
}

func TestNew_BadDataDir(t *testing.T) {
	_, cleanup, err := New(config.Config{DataDir: "/dev/null/cardvault"}, nil)
	require.Error(t, err)
	require.NotNil(t, cleanup)
	cleanup()
}

func TestHandleMessage_ToolsList(t *testing.T) {
	s, cleanup, err := New(config.Config{InMemory: true}, nil)
	require.NoError(t, err)
	defer cleanup()

	resp := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NotNil(t, resp)
}

func TestServerInstructions(t *testing.T) {
	text := serverInstructions()
	for _, tool := range []string{"card_search", "collection_list", "item_add", "storage_create"} {
		assert.True(t, strings.Contains(text, tool), "instructions should mention %s", tool)
	}
}
