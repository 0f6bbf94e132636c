// Package config provides configuration file parsing and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ParseFilePath validates a user-supplied file path and returns the cleaned path if valid.
// It returns an error if:
//   - The path is empty
//   - The path is not absolute
//   - The path contains parent directory traversal (..)
//   - The file does not exist
//   - The path points to a directory instead of a file
//   - The file extension is not one of exts (when exts is non-empty)
func ParseFilePath(path string, exts ...string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		return "", errors.New("path must be absolute")
	}

	if strings.Contains(path, "..") {
		return "", errors.New("path contains invalid traversal")
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("file does not exist")
		}
		return "", err
	}

	if info.IsDir() {
		return "", errors.New("path is a directory, not a file")
	}

	if len(exts) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(exts, ext) {
			return "", fmt.Errorf("file must have one of the extensions: %s", strings.Join(exts, ", "))
		}
	}

	return filepath.Clean(path), nil
}
