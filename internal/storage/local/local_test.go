package local

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestStatMissing(t *testing.T) {
	d := newTestDriver(t)
	info, err := d.Stat(context.Background(), "recordings/nope")
	if err != nil {
		t.Fatalf("Stat returned error for missing path: %v", err)
	}
	if info.Exists {
		t.Error("missing path reported as existing")
	}
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	if err := d.CreateDirectory(ctx, "recordings/a/b", false); err == nil {
		t.Error("expected error creating nested dir without intermediates")
	}
	if err := d.CreateDirectory(ctx, "recordings/a/b", true); err != nil {
		t.Fatalf("CreateDirectory: %v", err)
	}
	// Idempotent with intermediates
	if err := d.CreateDirectory(ctx, "recordings/a/b", true); err != nil {
		t.Fatalf("CreateDirectory again: %v", err)
	}
	if err := d.WriteFileBase64(ctx, "recordings/a/take.m4a", base64.StdEncoding.EncodeToString([]byte("abc"))); err != nil {
		t.Fatalf("WriteFileBase64: %v", err)
	}

	names, err := d.ListDirectory(ctx, "recordings/a")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "b" || names[1] != "take.m4a" {
		t.Errorf("ListDirectory = %v", names)
	}

	info, err := d.Stat(ctx, "recordings/a/take.m4a")
	if err != nil || !info.Exists || info.IsDir || info.Size != 3 {
		t.Errorf("Stat = %+v, %v", info, err)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	d.CreateDirectory(ctx, "recordings/src/inner", true)
	d.CreateDirectory(ctx, "recordings/dst", true)
	d.WriteFileBase64(ctx, "recordings/src/inner/x.wav", "")

	if err := d.Move(ctx, "recordings/src", "recordings/dst/src"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d.Base(), "recordings", "dst", "src", "inner", "x.wav")); err != nil {
		t.Errorf("moved child missing: %v", err)
	}
	if info, _ := d.Stat(ctx, "recordings/src"); info.Exists {
		t.Error("source still exists after move")
	}

	d.CreateDirectory(ctx, "recordings/other", true)
	err := d.Move(ctx, "recordings/other", "recordings/dst/src")
	if !errors.Is(err, fs.ErrExist) {
		t.Errorf("Move onto existing path: got %v, want ErrExist", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	d.CreateDirectory(ctx, "recordings/a/b", true)
	d.WriteFileBase64(ctx, "recordings/a/b/c.mp3", "")

	if err := d.Delete(ctx, "recordings/a"); err != nil {
		t.Fatalf("Delete dir: %v", err)
	}
	if info, _ := d.Stat(ctx, "recordings/a"); info.Exists {
		t.Error("directory still exists")
	}
	if err := d.Delete(ctx, "recordings/a"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Delete missing: got %v, want ErrNotExist", err)
	}
}

func TestBase64RoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	want := base64.StdEncoding.EncodeToString([]byte("[Trash Info]\nPath=a\n"))
	if err := d.WriteFileBase64(ctx, "recordings/.info/a.trashinfo", want); err != nil {
		t.Fatalf("WriteFileBase64: %v", err)
	}
	got, err := d.ReadFileBase64(ctx, "recordings/.info/a.trashinfo")
	if err != nil {
		t.Fatalf("ReadFileBase64: %v", err)
	}
	if got != want {
		t.Errorf("round trip = %q, want %q", got, want)
	}

	if err := d.WriteFileBase64(ctx, "recordings/bad", "!!!"); err == nil {
		t.Error("expected decode error")
	}
}

func TestOSPathStaysUnderBase(t *testing.T) {
	d := newTestDriver(t)
	got := d.OSPath("../../etc/passwd")
	want := filepath.Join(d.Base(), "etc", "passwd")
	if got != want {
		t.Errorf("OSPath = %q, want %q", got, want)
	}
}

func TestWalk(t *testing.T) {
	ctx := context.Background()
	d := newTestDriver(t)

	d.CreateDirectory(ctx, "recordings/a/b", true)
	d.CreateDirectory(ctx, "recordings/skip/deep", true)
	d.WriteFileBase64(ctx, "recordings/a/b/one.m4a", "")
	d.WriteFileBase64(ctx, "recordings/skip/deep/two.m4a", "")

	var mu sync.Mutex
	var seen []string
	err := d.Walk(ctx, "recordings", func(p string, info storage.Info, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir && p == "recordings/skip" {
			return storage.SkipDir
		}
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	sort.Strings(seen)
	want := []string{"recordings/a", "recordings/a/b", "recordings/a/b/one.m4a"}
	if len(seen) != len(want) {
		t.Fatalf("Walk saw %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}
