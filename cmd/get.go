package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/git"
	"github.com/illarion/recvault/internal/record"
)

// Get opens one record and prints it, or writes it as JSON to output
func Get(ctx context.Context, id, output string) {
	vault := openVault()
	defer vault.Close()

	passphrase := GetPassphraseOrExit(vault)
	defer crypto.ClearBytes(passphrase)

	rec, err := vault.Get(ctx, id, string(passphrase))
	var partial *record.PartialDecryptionError
	if err != nil && !errors.As(err, &partial) {
		HandleError(err)
	}

	if output != "" {
		status, werr := vault.WritePlaintext(output, rec)
		if werr != nil {
			HandleError(werr)
		}
		fmt.Printf("wrote: %s\n", output)
		if warning := git.PlaintextWarning(status); warning != "" {
			fmt.Fprintln(os.Stderr, warning)
		}
	} else {
		for _, f := range rec {
			fmt.Printf("%s: %s\n", f.Name, indentValue(f.Value))
		}
	}

	if partial != nil {
		fmt.Fprintf(os.Stderr, "warning: could not decrypt: %s\n", strings.Join(partial.Fields, ", "))
		os.Exit(1)
	}
}

// indentValue aligns continuation lines of multi-line values
func indentValue(v string) string {
	return strings.ReplaceAll(v, "\n", "\n  ")
}
