package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/illarion/recvault/internal/record"
)

// formatRecord renders a record as name=value lines for diffing
func formatRecord(rec record.Record) string {
	var b strings.Builder
	for _, f := range rec {
		b.WriteString(f.Name)
		b.WriteByte('=')
		// keep multi-line notes on one diff line per field
		b.WriteString(strings.ReplaceAll(f.Value, "\n", `\n`))
		b.WriteByte('\n')
	}
	return b.String()
}

// GenerateUnifiedDiff returns a unified diff of two records, or an empty
// string if they hold the same fields and values in the same order.
func GenerateUnifiedDiff(name string, stored, local record.Record) string {
	storedStr, localStr := formatRecord(stored), formatRecord(local)
	if storedStr == localStr {
		return ""
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff, one field per line
	a, b, lineArray := dmp.DiffLinesToChars(storedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(storedStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- vault/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ local/%s\n", name))
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}

// Diff compares the stored record id with local. Both sides are sorted by
// field name first so field order alone never shows up as a change.
func (v *Vault) Diff(ctx context.Context, id string, local record.Record, passphrase string) (string, error) {
	stored, err := v.Get(ctx, id, passphrase)
	if err != nil {
		return "", err
	}
	return GenerateUnifiedDiff(id, record.FromMap(stored.Map()), record.FromMap(local.Map())), nil
}
