package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitForRebuilds(t *testing.T, counter *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("rebuilds=%d, want %d", counter.Load(), want)
}

func TestWatcher_DebouncesBurstIntoOneRebuild(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, []string{".md"}, func() { rebuilds.Add(1) }, WithDebounce(100*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "doc"+string(rune('a'+i))+".md")
		if err := os.WriteFile(name, []byte("# Doc"), 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	waitForRebuilds(t, &rebuilds, 1)
	time.Sleep(200 * time.Millisecond)
	if got := rebuilds.Load(); got != 1 {
		t.Errorf("burst produced %d rebuilds, want 1", got)
	}
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, []string{".md"}, func() { rebuilds.Add(1) }, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(root, "notes.swp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rebuilds.Load(); got != 0 {
		t.Errorf("unmatched extension produced %d rebuilds", got)
	}
}

func TestWatcher_PicksUpNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, []string{".md"}, func() { rebuilds.Add(1) }, WithDebounce(50*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sub := filepath.Join(root, "it")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitForRebuilds(t, &rebuilds, 1)

	if err := os.WriteFile(filepath.Join(sub, "faq.md"), []byte("# FAQ"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForRebuilds(t, &rebuilds, 2)
}

func TestWatcher_StopCancelsPendingRebuild(t *testing.T) {
	root := t.TempDir()
	var rebuilds atomic.Int32
	w := New(root, nil, func() { rebuilds.Add(1) }, WithDebounce(200*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(filepath.Join(root, "doc.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()
	time.Sleep(400 * time.Millisecond)
	if got := rebuilds.Load(); got != 0 {
		t.Errorf("rebuild fired after Stop: %d", got)
	}
}
