// cardvault: Magic: The Gathering catalog and collection manager.
//
// Usage:
//
//	cardvault serve           # Start MCP server (stdio transport)
//	cardvault fetch --import  # Download and import the MTGJSON snapshot
//	cardvault search <name>   # Search the catalog
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/HendryAvila/cardvault/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
