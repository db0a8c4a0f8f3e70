package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/illarion/recvault/internal/core"
	"github.com/illarion/recvault/internal/crypto"
)

// List prints stored records. With a search term the records are
// decrypted and filtered by title, username and url.
func List(ctx context.Context, search string) {
	vault := openVault()
	defer vault.Close()

	if search != "" {
		listMatches(ctx, vault, search)
		return
	}

	entries, err := vault.List(ctx)
	if err != nil {
		HandleError(err)
	}
	if len(entries) == 0 {
		fmt.Println("No records in vault")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tFIELDS\tMODIFIED")
	for _, e := range entries {
		kind := e.Kind
		if e.Version < crypto.CurrentVersion {
			kind += " (v" + fmt.Sprint(e.Version) + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, kind, strings.Join(e.Fields, ","), e.Modified.Format("2006-01-02 15:04"))
	}
	w.Flush()
}

func listMatches(ctx context.Context, vault *core.Vault, search string) {
	passphrase := GetPassphraseOrExit(vault)
	defer crypto.ClearBytes(passphrase)

	matched, err := vault.Search(ctx, search, string(passphrase))
	if err != nil {
		HandleError(err)
	}
	if len(matched) == 0 {
		fmt.Printf("No records match %q\n", search)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUSERNAME\tURL")
	for _, r := range matched {
		title, _ := r.Record.Get("title")
		username, _ := r.Record.Get("username")
		url, _ := r.Record.Get("url")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Entry.ID, title, username, url)
	}
	w.Flush()
}
