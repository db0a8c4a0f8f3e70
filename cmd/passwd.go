package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/crypto"
)

// Passwd reseals every record under a new passphrase
func Passwd(ctx context.Context) {
	vault := openVault()
	defer vault.Close()

	current, err := GetPassphraseWithRetry("Enter current passphrase: ", vault.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	defer crypto.ClearBytes(current)

	if !core.IsTerminal() {
		fmt.Fprintln(os.Stderr, "Error: passwd needs a terminal to read the new passphrase")
		os.Exit(1)
	}
	newPassphrase, err := core.ReadPassphraseConfirm("Enter new passphrase: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(newPassphrase)

	if err := vault.ChangePassword(ctx, string(current), string(newPassphrase)); err != nil {
		HandleError(err)
	}

	// Compact database after rewriting all data
	if err := vault.Compact(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: compaction failed: %s\n", err)
	}

	fmt.Println("passphrase changed successfully")
}
