package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/crypto"
)

// Migrate upgrades records written in an older format version
func Migrate(ctx context.Context) {
	vault := openVault()
	defer vault.Close()

	passphrase := GetPassphraseOrExit(vault)
	defer crypto.ClearBytes(passphrase)

	n, err := vault.Migrate(ctx, string(passphrase))
	var failed *core.MigrationError
	if errors.As(err, &failed) {
		fmt.Printf("migrated %d record(s) to format v%d\n", n, crypto.CurrentVersion)
		for _, cause := range failed.Errs {
			fmt.Fprintf(os.Stderr, "Error: %s\n", cause)
		}
		os.Exit(1)
	}
	if err != nil {
		if n > 0 {
			fmt.Printf("migrated %d record(s) before the error\n", n)
		}
		HandleError(err)
	}

	if n == 0 {
		fmt.Printf("All records already use format v%d\n", crypto.CurrentVersion)
		return
	}
	fmt.Printf("migrated %d record(s) to format v%d\n", n, crypto.CurrentVersion)
}
