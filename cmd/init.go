package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/crypto"
)

// Init creates a new vault in the current directory
func Init() {
	vault := openVault()
	defer vault.Close()

	passphrase, err := GetPassphraseForInit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer crypto.ClearBytes(passphrase)

	if err := vault.Init(string(passphrase)); err != nil {
		HandleError(err)
	}

	fmt.Printf("✓ Initialized %s (%s)\n", core.VaultFile, vault.Backend())
}
