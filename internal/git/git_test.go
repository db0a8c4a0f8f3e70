package git

import (
	"strings"
	"testing"
)

func TestPlaintextWarning(t *testing.T) {
	tests := []struct {
		name   string
		status FileStatus
		want   string
	}{
		{"outside repo", FileStatus{Path: "out.json"}, ""},
		{"ignored", FileStatus{Path: "out.json", IsRepo: true, Ignored: true}, ""},
		{"tracked", FileStatus{Path: "out.json", IsRepo: true, Tracked: true}, "tracked by git"},
		{"not ignored", FileStatus{Path: "out.json", IsRepo: true}, "not in .gitignore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlaintextWarning(&tt.status)
			if tt.want == "" && got != "" {
				t.Errorf("Expected no warning, got %q", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, got)
			}
		})
	}
}

func TestCheckOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	status := Check(dir, "out.json")
	if status.IsRepo != IsGitRepo(dir) {
		t.Error("IsRepo should match IsGitRepo")
	}
	if status.Path != "out.json" {
		t.Errorf("Path mismatch: %s", status.Path)
	}
	if VaultLine(&FileStatus{Path: ".recvault"}) != "" {
		t.Error("VaultLine should be empty outside a repo")
	}
}
