package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/recvault/internal/crypto"
)

// Diff compares a stored record with a local JSON file of field values
func Diff(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: recvault diff <id> <file.json>\n")
		os.Exit(1)
	}
	id, path := args[0], args[1]

	vault := openVault()
	defer vault.Close()

	local, err := vault.ReadPlaintext(path)
	if err != nil {
		HandleError(err)
	}

	passphrase := GetPassphraseOrExit(vault)
	defer crypto.ClearBytes(passphrase)

	diff, err := vault.Diff(ctx, id, local, string(passphrase))
	if err != nil {
		HandleError(err)
	}

	if diff == "" {
		fmt.Println("No changes detected")
		return
	}
	fmt.Print(diff)
}
