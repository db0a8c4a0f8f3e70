package security

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestPathValidator_ValidateAndNormalize(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple file", "vault.json", "vault.json", nil},
		{"file in subdirectory", "backup/vault.json", "backup/vault.json", nil},
		{"hidden file", ".recvault-export", ".recvault-export", nil},
		{"dot slash", "./out.json", "out.json", nil},
		{"redundant slashes", "a//b///out.json", "a/b/out.json", nil},
		{"dot segments", "a/./b/./out.json", "a/b/out.json", nil},
		{"inner parent", "a/../out.json", "out.json", nil},

		{"parent directory", "../out.json", "", ErrPathEscapes},
		{"nested parent", "a/../../out.json", "", ErrPathEscapes},
		{"multiple parents", "../../etc/passwd", "", ErrPathEscapes},
		{"absolute path", "/etc/passwd", "", ErrAbsolutePath},
		{"empty path", "", "", ErrEmptyPath},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, struct {
			name    string
			input   string
			want    string
			wantErr error
		}{"absolute path windows", "C:\\Windows\\System32\\config", "", ErrAbsolutePath})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := validator.ValidateAndNormalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v for %q, got %v", tt.wantErr, tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tt.input, err)
			}
			if result != tt.want {
				t.Errorf("Got %q, want %q", result, tt.want)
			}
			if strings.Contains(result, "\\") {
				t.Errorf("Result should use forward slashes, got %q", result)
			}
		})
	}
}

func TestPathValidator_WriteFile(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	tests := []struct {
		name      string
		path      string
		shouldErr bool
	}{
		{"valid file", "export.json", false},
		{"nested file creates parents", "backups/2026/export.json", false},
		{"path traversal attempt", "../outside.json", true},
		{"absolute path", "/etc/shadow", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(tt.name)
			err := validator.WriteFile(tt.path, data, 0600)

			if tt.shouldErr {
				if err == nil {
					t.Errorf("Expected error when writing to %q, got none", tt.path)
				}
				outside := filepath.Join(filepath.Dir(tmpDir), filepath.Base(tt.path))
				if _, statErr := os.Stat(outside); statErr == nil {
					t.Errorf("File was created outside root at %q", outside)
					os.Remove(outside)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error writing to %q: %v", tt.path, err)
			}
			content, err := os.ReadFile(filepath.Join(tmpDir, filepath.FromSlash(tt.path)))
			if err != nil {
				t.Fatalf("Failed to read written file: %v", err)
			}
			if string(content) != string(data) {
				t.Errorf("File content mismatch: got %q, want %q", content, data)
			}
		})
	}
}

func TestPathValidator_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "sub"), 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "sub", "local.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	data, err := validator.ReadFile("sub/local.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Content mismatch: got %q", data)
	}

	if _, err := validator.ReadFile("missing.json"); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := validator.ReadFile("../outside.json"); !errors.Is(err, ErrPathEscapes) {
		t.Errorf("Expected ErrPathEscapes, got %v", err)
	}
}

func TestPathValidator_Exists(t *testing.T) {
	tmpDir := t.TempDir()

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	exists, err := validator.Exists("export.json")
	if err != nil || exists {
		t.Fatalf("Expected missing file, got exists=%v err=%v", exists, err)
	}

	if err := validator.WriteFile("export.json", []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err = validator.Exists("export.json")
	if err != nil || !exists {
		t.Fatalf("Expected existing file, got exists=%v err=%v", exists, err)
	}

	if _, err := validator.Exists("/etc/passwd"); !errors.Is(err, ErrAbsolutePath) {
		t.Errorf("Expected ErrAbsolutePath, got %v", err)
	}
}

// os.Root must refuse symlinks that point outside the root
func TestPathValidator_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	tmpDir := t.TempDir()

	if err := os.Symlink(outside, filepath.Join(tmpDir, "link")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	validator, err := New(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}
	defer validator.Close()

	if err := validator.WriteFile("link/pwned.json", []byte("x"), 0600); err == nil {
		t.Error("Expected error when writing through an escaping symlink")
	}
	if _, statErr := os.Stat(filepath.Join(outside, "pwned.json")); statErr == nil {
		t.Error("File was written outside root through symlink")
	}
}
