package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDirectoryWatcherDebounces(t *testing.T) {
	dir := t.TempDir()
	dw, err := NewDirectoryWatcher(50 * time.Millisecond)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer dw.Close()

	if err := dw.Follow(dir); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		os.WriteFile(filepath.Join(dir, "take"+string(rune('a'+i))+".m4a"), nil, 0o644)
	}

	select {
	case got := <-dw.Notify():
		if got != dir {
			t.Errorf("notified %q, want %q", got, dir)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
	}

	select {
	case got := <-dw.Notify():
		t.Errorf("burst produced a second notification: %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDirectoryWatcherFollowSwitches(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	dw, err := NewDirectoryWatcher(20 * time.Millisecond)
	if err != nil {
		t.Skipf("fsnotify unavailable: %v", err)
	}
	defer dw.Close()

	dw.Follow(a)
	if err := dw.Follow(b); err != nil {
		t.Fatal(err)
	}
	if dw.Watching() != b {
		t.Fatalf("Watching = %q", dw.Watching())
	}

	os.WriteFile(filepath.Join(a, "ignored.m4a"), nil, 0o644)
	select {
	case got := <-dw.Notify():
		t.Fatalf("event from unwatched dir: %q", got)
	case <-time.After(150 * time.Millisecond):
	}

	dw.Follow("")
	if dw.Watching() != "" {
		t.Error("Follow(\"\") kept a watch")
	}
	if err := dw.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	dw.Close()
}
