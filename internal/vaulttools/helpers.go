// Package vaulttools provides MCP tool handlers over the cardvault store.
//
// Each tool follows the same shape:
// - A struct holding the *vault.Store, built by a NewXTool constructor
// - Definition() returns the mcp.Tool schema
// - Handle() validates arguments, calls the store and renders text
//
// Store errors never escape as Go errors; they become tool error results
// that list the offending fields.
package vaulttools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/HendryAvila/cardvault/internal/vault"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// intPtrArg is intArg for optional fields: nil when the key is absent.
func intPtrArg(req mcp.CallToolRequest, key string) *int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// boolPtrArg returns nil when the key is absent.
func boolPtrArg(req mcp.CallToolRequest, key string) *bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// stringPtrArg returns nil when the key is absent. An explicit empty string
// is returned as a pointer to "".
func stringPtrArg(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// priceArg parses a decimal price given either as a string or a number.
func priceArg(req mcp.CallToolRequest, key string) (*decimal.Decimal, error) {
	switch v := req.GetArguments()[key].(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("'%s' must be a decimal amount", key)
		}
		return &d, nil
	case float64:
		d := decimal.NewFromFloat(v)
		return &d, nil
	default:
		return nil, fmt.Errorf("'%s' must be a decimal amount", key)
	}
}

// toolError renders err as a tool error result. Store errors list their
// kind and every field reason.
func toolError(action string, err error) *mcp.CallToolResult {
	var ve *vault.Error
	if !errors.As(err, &ve) {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", action, err))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed: %s", action, ve.Kind)
	for _, f := range ve.Fields {
		fmt.Fprintf(&b, "\n- %s: %s", f.Field, f.Reason)
	}
	return mcp.NewToolResultError(b.String())
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
