package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var textExtensions = []string{".txt", ".md", ".markdown", ".text"}

// ValidateInputFile checks that path names a readable regular file
func ValidateInputFile(path string) error {
	if path == "" {
		return fmt.Errorf("no candidate file given")
	}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", path)
	case err != nil:
		return fmt.Errorf("cannot access file %s: %w", path, err)
	case info.IsDir():
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", path, err)
	}
	return f.Close()
}

// ValidateOutputFile makes sure the directory of an output path exists.
// An empty path means stdout.
func ValidateOutputFile(path string) error {
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", dir, err)
	}
	return nil
}

// GetFileExtension returns the file extension in lowercase
func GetFileExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsTextFile reports whether the extension is a plain-text one
func IsTextFile(path string) bool {
	return slices.Contains(textExtensions, GetFileExtension(path))
}

// IsPDFFile reports whether the extension is .pdf
func IsPDFFile(path string) bool {
	return GetFileExtension(path) == ".pdf"
}

// FormatFileSize returns a human-readable size such as "10.0 MB"
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
