package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mark.png")
	if err := os.WriteFile(path, []byte("v1"), 0644); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan string, 8)
	w, err := New(path, func(p string) { reloads <- p }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.SetDebounce(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case got := <-reloads:
		want, _ := filepath.Abs(path)
		if got != want {
			t.Errorf("reloaded %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	// the burst collapses into a single reload
	select {
	case <-reloads:
		t.Error("expected one reload per burst")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mark.png")
	os.WriteFile(path, []byte("v1"), 0644)

	reloads := make(chan string, 1)
	w, err := New(path, func(p string) { reloads <- p }, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Stop()
	w.SetDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	os.WriteFile(filepath.Join(dir, "other.png"), []byte("x"), 0644)

	select {
	case <-reloads:
		t.Error("reload triggered by an unrelated file")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestNewMissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope", "mark.png"), func(string) {}, nil); err == nil {
		t.Error("expected error for missing directory")
	}
}
