package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/git"
)

// Status shows the current state of the vault (no passphrase required)
func Status(ctx context.Context) {
	vault := openVault()
	defer vault.Close()

	if _, err := os.Stat(vault.Path()); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No %s file found in current directory\n", core.VaultFile)
			fmt.Println("Run 'recvault init' to create one")
			return
		}
		HandleError(err)
	}

	status, err := vault.Status(ctx)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Vault:      %s (%s, %s)\n", core.VaultFile, status.Backend, formatSize(status.FileSize))
	if status.VaultID != "" {
		fmt.Printf("ID:         %s\n", status.VaultID)
	}
	if !status.LastModified.IsZero() {
		fmt.Printf("Modified:   %s\n", status.LastModified.Format(time.RFC3339))
	}
	fmt.Printf("Encryption: %s, %s (%d iterations)\n", status.Algorithm, status.KDF, status.KDFIterations)
	fmt.Printf("Format:     v%d\n", status.CurrentVersion)

	fmt.Printf("\nRecords: %d\n", status.RecordCount)
	kinds := make([]string, 0, len(status.Kinds))
	for kind := range status.Kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("  %-10s %d\n", kind, status.Kinds[kind])
	}

	if status.LegacyCount > 0 {
		fmt.Printf("\n%d record(s) use an older format, run 'recvault migrate'\n", status.LegacyCount)
	}

	if line := git.VaultLine(status.GitStatus); line != "" {
		fmt.Println()
		fmt.Println("Git:")
		fmt.Println(line)
	}
}
