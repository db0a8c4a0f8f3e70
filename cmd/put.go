package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/recvault/internal/crypto"
)

// Put seals name=value fields into a record
func Put(ctx context.Context, id, kind string, args []string) {
	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: put requires at least one name=value field\n")
		fmt.Fprintf(os.Stderr, "Usage: recvault put [-id ID] [-kind KIND] name=value [name=value...]\n")
		os.Exit(1)
	}

	vault := openVault()
	defer vault.Close()

	passphrase := GetPassphraseOrExit(vault)
	defer crypto.ClearBytes(passphrase)

	rec, err := ParseFields(args, promptField)
	if err != nil {
		HandleError(err)
	}

	id, err = vault.Put(ctx, id, kind, rec, string(passphrase))
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("stored: %s (%d fields)\n", id, len(rec))
}
