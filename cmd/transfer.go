package cmd

import (
	"context"
	"fmt"
)

// Export writes all sealed records to a ciphertext-only bundle
func Export(ctx context.Context, path string, overwrite bool) {
	vault := openVault()
	defer vault.Close()

	n, err := vault.Export(ctx, path, overwrite)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("exported %d record(s) to %s\n", n, path)
}

// Import adds records from a bundle written by Export
func Import(ctx context.Context, path string) {
	vault := openVault()
	defer vault.Close()

	n, err := vault.Import(ctx, path)
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("imported %d record(s) from %s\n", n, path)
}
