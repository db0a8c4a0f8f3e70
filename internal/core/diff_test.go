package core

import (
	"context"
	"strings"
	"testing"

	"github.com/illarion/recvault/internal/record"
)

func TestGenerateUnifiedDiff(t *testing.T) {
	stored := record.Record{{Name: "password", Value: "old"}, {Name: "title", Value: "Bank"}}

	if diff := GenerateUnifiedDiff("bank", stored, stored); diff != "" {
		t.Errorf("Identical records should produce no diff, got %q", diff)
	}

	local := record.Record{{Name: "password", Value: "new"}, {Name: "title", Value: "Bank"}}
	diff := GenerateUnifiedDiff("bank", stored, local)
	for _, want := range []string{"--- vault/bank", "+++ local/bank", "-password=old", "+password=new"} {
		if !strings.Contains(diff, want) {
			t.Errorf("Expected %q in diff:\n%s", want, diff)
		}
	}
	if strings.Contains(diff, "-title") {
		t.Errorf("Unchanged field should not be removed:\n%s", diff)
	}
}

func TestFormatRecordEscapesNewlines(t *testing.T) {
	got := formatRecord(record.Record{{Name: "notes", Value: "a\nb"}})
	if got != "notes=a\\nb\n" {
		t.Errorf("Unexpected format: %q", got)
	}
}

func TestVaultDiff(t *testing.T) {
	v, _ := initTestVault(t)
	ctx := context.Background()

	stored := record.Record{{Name: "title", Value: "Bank"}, {Name: "password", Value: "old"}}
	if _, err := v.Put(ctx, "bank", KindPassword, stored, testPassphrase); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Field order alone is not a change
	reordered := record.Record{{Name: "password", Value: "old"}, {Name: "title", Value: "Bank"}}
	diff, err := v.Diff(ctx, "bank", reordered, testPassphrase)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if diff != "" {
		t.Errorf("Expected no diff, got:\n%s", diff)
	}

	changed := record.Record{{Name: "title", Value: "Bank"}, {Name: "password", Value: "new"}, {Name: "url", Value: "bank"}}
	diff, err = v.Diff(ctx, "bank", changed, testPassphrase)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if !strings.Contains(diff, "+password=new") || !strings.Contains(diff, "+url=bank") {
		t.Errorf("Unexpected diff:\n%s", diff)
	}

	if _, err := v.Diff(ctx, "bank", changed, "wrong"); err != ErrWrongPassword {
		t.Errorf("Expected ErrWrongPassword, got %v", err)
	}
}
