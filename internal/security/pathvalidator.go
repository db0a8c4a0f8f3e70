package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes working directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines reads and writes of export bundles and decrypted
// output to one directory, using os.Root.
type PathValidator struct {
	root    *os.Root
	dirPath string
}

// New opens a validator rooted at dir.
func New(dir string) (*PathValidator, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}

	return &PathValidator{
		root:    root,
		dirPath: absPath,
	}, nil
}

// Close releases the root handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute root directory.
func (pv *PathValidator) Dir() string {
	return pv.dirPath
}

// ValidateAndNormalize returns userPath as a clean, slash-separated path
// relative to the root. Empty, absolute and escaping paths are rejected.
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	// filepath.IsLocal also rejects reserved names on Windows
	if !filepath.IsLocal(userPath) {
		if filepath.IsAbs(userPath) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	cleanPath := filepath.Clean(userPath)
	relPath, err := filepath.Rel(pv.dirPath, filepath.Join(pv.dirPath, cleanPath))
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	return filepath.ToSlash(relPath), nil
}

// WriteFile writes data to path inside the root, creating parent
// directories as needed.
func (pv *PathValidator) WriteFile(path string, data []byte, perm os.FileMode) error {
	rel, err := pv.ValidateAndNormalize(filepath.FromSlash(path))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	platformPath := filepath.FromSlash(rel)

	if dir := filepath.Dir(platformPath); dir != "." {
		if err := pv.root.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return pv.root.WriteFile(platformPath, data, perm)
}

// ReadFile reads path inside the root.
func (pv *PathValidator) ReadFile(path string) ([]byte, error) {
	rel, err := pv.ValidateAndNormalize(filepath.FromSlash(path))
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	return pv.root.ReadFile(filepath.FromSlash(rel))
}

// Exists reports whether path exists inside the root.
func (pv *PathValidator) Exists(path string) (bool, error) {
	rel, err := pv.ValidateAndNormalize(filepath.FromSlash(path))
	if err != nil {
		return false, fmt.Errorf("invalid path: %w", err)
	}
	_, err = pv.root.Stat(filepath.FromSlash(rel))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
