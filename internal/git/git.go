package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// FileStatus is the git state of one path
type FileStatus struct {
	Path    string
	IsRepo  bool
	Tracked bool
	Ignored bool
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// Check returns the git status of path relative to workDir
func Check(workDir, path string) *FileStatus {
	status := &FileStatus{Path: path}
	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true
	status.Tracked = IsTracked(workDir, path)
	status.Ignored = IsIgnored(workDir, path)
	return status
}

// PlaintextWarning describes the risk of a decrypted file, or "" if git
// will not pick it up.
func PlaintextWarning(status *FileStatus) string {
	switch {
	case !status.IsRepo:
		return ""
	case status.Tracked:
		return fmt.Sprintf("warning: %s contains plaintext and is tracked by git (run: git rm --cached %s)", status.Path, status.Path)
	case !status.Ignored:
		return fmt.Sprintf("warning: %s contains plaintext and is not in .gitignore", status.Path)
	default:
		return ""
	}
}

// VaultLine formats the vault file status for recvault status
func VaultLine(status *FileStatus) string {
	if !status.IsRepo {
		return ""
	}
	if status.Tracked {
		return fmt.Sprintf("   ok: %s is tracked by git", status.Path)
	}
	return fmt.Sprintf("   note: %s not tracked (safe to commit: it holds ciphertext only)", status.Path)
}
