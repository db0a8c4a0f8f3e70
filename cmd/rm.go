package cmd

import (
	"context"
	"fmt"
	"os"
)

// Remove deletes records from the vault
func Remove(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one record ID\n")
		fmt.Fprintf(os.Stderr, "Usage: recvault rm <id> [id...]\n")
		os.Exit(1)
	}

	vault := openVault()
	defer vault.Close()

	if err := vault.Remove(ctx, ids); err != nil {
		HandleError(err)
	}
	for _, id := range ids {
		fmt.Printf("removed: %s\n", id)
	}

	// Compact database to reclaim space
	if err := vault.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}
}
