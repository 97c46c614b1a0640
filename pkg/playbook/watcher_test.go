package playbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playbook.yml")
	initial := "config:\n  - fabric_sites:\n      - site_name_hierarchy: Global\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan *Playbook, 4)
	watcher := NewWatcher(zerolog.Nop())
	watcher.reloadDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- watcher.Watch(ctx, path, func(pb *Playbook, err error) {
			if err != nil {
				t.Errorf("reload failed: %v", err)
				return
			}
			reloads <- pb
		})
	}()

	// Give the watcher a moment to register before touching the file.
	time.Sleep(100 * time.Millisecond)

	updated := "config:\n  - fabric_sites:\n      - site_name_hierarchy: Global/USA\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case pb := <-reloads:
		if len(pb.Docs) != 1 {
			t.Errorf("expected 1 doc after reload, got %d", len(pb.Docs))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "playbook.yml")
	if err := os.WriteFile(path, []byte("config:\n  - {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan struct{}, 4)
	watcher := NewWatcher(zerolog.Nop())
	watcher.reloadDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = watcher.Watch(ctx, path, func(*Playbook, error) {
			reloads <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloads:
		t.Error("sibling file change triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
