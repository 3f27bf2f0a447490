package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchConfig_EmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "system.json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := WatchConfig(ctx, 20*time.Millisecond, p)

	// Give the watcher goroutine a moment to register.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(p, []byte(`{"log_level":"debug"}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before a reload was emitted")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload signal after write")
	}
}

func TestWatchConfig_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "system.json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := WatchConfig(ctx, 20*time.Millisecond, p)
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write sibling: %v", err)
	}

	select {
	case <-ch:
		t.Fatal("unexpected reload for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatchConfig_ClosesOnCancel(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "system.json", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	ch := WatchConfig(ctx, 20*time.Millisecond, p)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got a reload signal")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
