package review

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadLore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smu_lore.txt")
	if err := os.WriteFile(path, []byte("Everyone bids for the same module."), 0600); err != nil {
		t.Fatalf("failed to write lore: %v", err)
	}

	if got := LoadLore(path); got != "Everyone bids for the same module." {
		t.Errorf("unexpected lore %q", got)
	}
	if got := LoadLore(filepath.Join(dir, "missing.txt")); got != FallbackLore {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := LoadLore(""); got != FallbackLore {
		t.Errorf("expected fallback for empty path, got %q", got)
	}
	if got := LoadLore(dir); got != FallbackLore {
		t.Errorf("expected fallback for directory, got %q", got)
	}
	if got := (FileLore{Path: path}).Current(); got != "Everyone bids for the same module." {
		t.Errorf("FileLore returned %q", got)
	}
}

func waitForLore(t *testing.T, lw *LoreWatcher, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lw.Current() == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("lore never became %q, last value %q", want, lw.Current())
}

func TestLoreWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smu_lore.txt")
	if err := os.WriteFile(path, []byte("v1"), 0600); err != nil {
		t.Fatalf("failed to write lore: %v", err)
	}

	lw := NewLoreWatcher(path, 10*time.Millisecond, nil)
	if lw.Current() != "v1" {
		t.Fatalf("expected initial lore v1, got %q", lw.Current())
	}
	if err := lw.Start(); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer func() {
		if err := lw.Stop(); err != nil {
			t.Errorf("stop failed: %v", err)
		}
	}()

	if err := lw.Start(); err == nil {
		t.Error("expected error when starting twice")
	}

	if err := os.WriteFile(path, []byte("v2"), 0600); err != nil {
		t.Fatalf("failed to rewrite lore: %v", err)
	}
	waitForLore(t, lw, "v2")

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove lore: %v", err)
	}
	waitForLore(t, lw, FallbackLore)
}

func TestLoreWatcherStartWithoutPath(t *testing.T) {
	lw := NewLoreWatcher("", 0, nil)
	if lw.Current() != FallbackLore {
		t.Errorf("expected fallback, got %q", lw.Current())
	}
	if err := lw.Start(); err == nil {
		t.Error("expected error for empty path")
	}
	if err := lw.Stop(); err != nil {
		t.Errorf("stop on idle watcher should be a no-op: %v", err)
	}
}
