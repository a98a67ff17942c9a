package review

import (
	"os"
)

// FallbackLore replaces the lore file when it cannot be read
const FallbackLore = "No SMU lore found."

// LoadLore reads the lore file. Any failure, including an empty path, yields the
// fallback sentence instead of an error.
func LoadLore(path string) string {
	if path == "" {
		return FallbackLore
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return FallbackLore
	}
	return string(content)
}

// LoreSource supplies lore at submission time
type LoreSource interface {
	Current() string
}

// FileLore reads the lore file on every call
type FileLore struct {
	Path string
}

func (f FileLore) Current() string {
	return LoadLore(f.Path)
}
