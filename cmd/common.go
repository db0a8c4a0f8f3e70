package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/record"
	"github.com/illarion/recvault/internal/security"
)

const maxPassphraseAttempts = 3

// openVault creates a Vault for the current directory configured from the
// environment.
func openVault() *core.Vault {
	cfg, err := core.LoadConfig(nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	vault, err := core.New(".", cfg.Options()...)
	if err != nil {
		HandleError(err)
	}
	return vault
}

// GetPassphrase retrieves the passphrase from the environment or prompts
// for it. The caller clears the returned bytes.
func GetPassphrase(prompt string) ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	if !core.IsTerminal() {
		return nil, core.ErrPasswordRequired
	}
	return core.ReadPassphrase(prompt)
}

// GetPassphraseWithRetry prompts until verify accepts the passphrase.
// A passphrase from the environment is tried once.
func GetPassphraseWithRetry(prompt string, verify func(string) error) ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		if err := verify(string(passphrase)); err != nil {
			crypto.ClearBytes(passphrase)
			return nil, err
		}
		return passphrase, nil
	}

	for attempt := 1; ; attempt++ {
		passphrase, err := GetPassphrase(prompt)
		if err != nil {
			return nil, err
		}
		err = verify(string(passphrase))
		if err == nil {
			return passphrase, nil
		}
		crypto.ClearBytes(passphrase)
		if !errors.Is(err, core.ErrWrongPassword) || attempt == maxPassphraseAttempts {
			return nil, err
		}
		fmt.Fprintln(os.Stderr, "Wrong passphrase, try again.")
	}
}

// GetPassphraseOrExit is like GetPassphraseWithRetry but exits on error
func GetPassphraseOrExit(vault *core.Vault) []byte {
	passphrase, err := GetPassphraseWithRetry("Enter passphrase: ", vault.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	return passphrase
}

// GetPassphraseForInit checks the environment first, then prompts with
// confirmation
func GetPassphraseForInit() ([]byte, error) {
	if passphrase := core.PassphraseFromEnv(); passphrase != nil {
		return passphrase, nil
	}
	return core.ReadPassphraseConfirm("Enter new passphrase: ")
}

// HandleError prints err the way users expect and exits
func HandleError(err error) {
	var partial *record.PartialDecryptionError
	switch {
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: recvault not initialized\n")
		fmt.Fprintf(os.Stderr, "Run 'recvault init' first\n")
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists in this directory\n", core.VaultFile)
		fmt.Fprintf(os.Stderr, "Use 'recvault status' to see current state\n")
	case errors.Is(err, core.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase\n")
	case errors.Is(err, core.ErrPasswordRequired):
		fmt.Fprintf(os.Stderr, "Error: passphrase required\n")
		fmt.Fprintf(os.Stderr, "Set %s or run from a terminal\n", core.EnvPassphrase)
	case errors.Is(err, core.ErrRecordNotFound):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'recvault ls' to see stored records\n")
	case errors.As(err, &partial):
		fmt.Fprintf(os.Stderr, "Error: %s\n", partial)
	case errors.Is(err, crypto.ErrDecryption):
		fmt.Fprintf(os.Stderr, "Error: wrong passphrase or corrupted data\n")
	case errors.Is(err, crypto.ErrUnsupportedVersion):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "The record format needs a migration this build cannot perform\n")
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrAbsolutePath):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Paths must stay inside the current directory\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// ParseFields parses name=value arguments into a record. A value of "-"
// is read from the terminal without echo.
func ParseFields(args []string, prompt func(name string) (string, error)) (record.Record, error) {
	var rec record.Record
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid field %q: expected name=value", arg)
		}
		name = strings.TrimSpace(name)
		if _, exists := rec.Get(name); exists {
			return nil, fmt.Errorf("%w: %s", record.ErrDuplicateFieldName, name)
		}
		if value == "-" && prompt != nil {
			v, err := prompt(name)
			if err != nil {
				return nil, err
			}
			value = v
		}
		rec.Set(name, value)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// promptField reads one field value without echo
func promptField(name string) (string, error) {
	value, err := core.ReadPassphrase(name + ": ")
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(value)
	return string(value), nil
}

func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
