package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage/memfs"
)

type fixedMeta map[string]float64

func (m fixedMeta) Duration(_ context.Context, p string) (float64, bool) {
	s, ok := m[p]
	return s, ok
}

// flakyDriver fails Stat for one path.
type flakyDriver struct {
	storage.Driver
	badStat string
}

func (f *flakyDriver) Stat(ctx context.Context, p string) (storage.Info, error) {
	if p == f.badStat {
		return storage.Info{}, errors.New("corrupt entry")
	}
	return f.Driver.Stat(ctx, p)
}

func seedTree(t *testing.T) *memfs.Driver {
	t.Helper()
	ctx := context.Background()
	d := memfs.New()
	for _, f := range []string{
		"recordings/take one.m4a",
		"recordings/take two.WAV",
		"recordings/readme.txt",
		"recordings/.DS_Store",
		"recordings/beta/a.mp3",
		"recordings/beta/sub/b.mp3",
		"recordings/Alpha/x.m4a",
		"recordings/recently-deleted/gone.m4a",
		"recordings/recently-deleted/.info/gone.m4a.trashinfo",
	} {
		if err := d.WriteFileBase64(ctx, f, ""); err != nil {
			t.Fatal(err)
		}
	}
	d.CreateDirectory(ctx, "recordings/empty", true)
	return d
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func folderName(f domain.FolderEntry) string  { return f.Name }
func fileName(f domain.AudioFileEntry) string { return f.Name }

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListClassifies(t *testing.T) {
	d := seedTree(t)
	l := NewLister(d, fixedMeta{"recordings/take one.m4a": 42}, Options{})

	listing, err := l.List(context.Background(), "recordings")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if got := names(listing.Folders, folderName); !equal(got, []string{"Alpha", "beta", "empty"}) {
		t.Errorf("folders = %v", got)
	}
	got := names(listing.Files, fileName)
	if len(got) != 2 {
		t.Fatalf("files = %v", got)
	}

	for _, f := range listing.Folders {
		want := map[string]int{"Alpha": 1, "beta": 2, "empty": 0}[f.Name]
		if f.ItemCount != want {
			t.Errorf("%s ItemCount = %d, want %d", f.Name, f.ItemCount, want)
		}
	}
	for _, f := range listing.Files {
		switch f.Name {
		case "take one.m4a":
			if f.DurationSeconds == nil || *f.DurationSeconds != 42 {
				t.Errorf("duration = %v", f.DurationSeconds)
			}
		case "take two.WAV":
			if f.DurationSeconds != nil {
				t.Error("duration present without metadata")
			}
		}
		if f.AbsolutePath != "recordings/"+f.Name || f.Path.String() != f.Name {
			t.Errorf("paths = %q, %q", f.AbsolutePath, f.Path)
		}
	}
}

func TestListRecentlyDeletedView(t *testing.T) {
	l := NewLister(seedTree(t), nil, Options{})
	listing, err := l.List(context.Background(), "recordings/recently-deleted")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listing.Folders) != 0 || len(listing.Files) != 1 || listing.Files[0].Name != "gone.m4a" {
		t.Errorf("listing = %+v", listing)
	}
	if got := listing.Files[0].Path.String(); got != "recently-deleted/gone.m4a" {
		t.Errorf("Path = %q", got)
	}
}

func TestListSkipsUnreadableEntry(t *testing.T) {
	d := &flakyDriver{Driver: seedTree(t), badStat: "recordings/take one.m4a"}
	l := NewLister(d, nil, Options{})

	listing, err := l.List(context.Background(), "recordings")
	if err != nil {
		t.Fatalf("one bad entry failed the listing: %v", err)
	}
	if len(listing.Files) != 1 || listing.Files[0].Name != "take two.WAV" {
		t.Errorf("files = %v", names(listing.Files, fileName))
	}
}

type brokenLister struct{ storage.Driver }

func (brokenLister) ListDirectory(context.Context, string) ([]string, error) {
	return nil, errors.New("io error")
}

func TestListError(t *testing.T) {
	l := NewLister(brokenLister{memfs.New()}, nil, Options{})
	_, err := l.List(context.Background(), "recordings")
	if !errors.Is(err, domain.ErrList) {
		t.Errorf("err = %v, want ListError", err)
	}
}

func TestListEpochZeroFallsBackToNow(t *testing.T) {
	ctx := context.Background()
	d := memfs.New()
	d.WriteFileBase64(ctx, "recordings/old.m4a", "")
	epoch := time.Unix(0, 0)
	d.Fs().Chtimes("/recordings/old.m4a", epoch, epoch)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLister(d, nil, Options{})
	l.now = func() time.Time { return now }

	listing, err := l.List(ctx, "recordings")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := listing.Files[0].CreatedAt; !got.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got, now)
	}
}

func TestCreatedAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	born := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mod := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		info storage.Info
		want time.Time
	}{
		{storage.Info{CreatedAt: born, ModifiedAt: mod}, born},
		{storage.Info{ModifiedAt: mod}, mod},
		{storage.Info{}, now},
		{storage.Info{ModifiedAt: time.Unix(0, 0)}, now},
		{storage.Info{CreatedAt: time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)}, now},
	}
	for i, tc := range testCases {
		if got := CreatedAt(tc.info, now); !got.Equal(tc.want) {
			t.Errorf("case %d: CreatedAt = %v, want %v", i, got, tc.want)
		}
	}
}

func TestIsAudio(t *testing.T) {
	l := NewLister(memfs.New(), nil, Options{Extensions: []string{"m4a", ".FLAC"}})
	for name, want := range map[string]bool{
		"a.m4a": true, "a.M4A": true, "a.flac": true, "a.mp3": false, "m4a": false,
	} {
		if got := l.IsAudio(name); got != want {
			t.Errorf("IsAudio(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestPickerFoldersCountsRecursively(t *testing.T) {
	l := NewLister(seedTree(t), nil, Options{})
	folders, err := l.PickerFolders(context.Background(), "recordings")
	if err != nil {
		t.Fatalf("PickerFolders: %v", err)
	}
	counts := map[string]int{}
	for _, f := range folders {
		counts[f.Name] = f.ItemCount
	}
	// beta holds a.mp3, sub and sub/b.mp3
	if counts["beta"] != 3 || counts["Alpha"] != 1 || counts["empty"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestAllFolders(t *testing.T) {
	ctx := context.Background()
	d := seedTree(t)
	d.CreateDirectory(ctx, "recordings/hello/Song Ideas", true)
	d.CreateDirectory(ctx, "recordings/Song Ideas", true)
	l := NewLister(d, nil, Options{})

	folders, err := l.AllFolders(ctx)
	if err != nil {
		t.Fatalf("AllFolders: %v", err)
	}
	var paths []string
	for _, f := range folders {
		paths = append(paths, f.Path.String())
	}
	want := []string{"Alpha", "beta", "beta/sub", "empty", "hello", "hello/Song Ideas", "Song Ideas"}
	if !equal(paths, want) {
		t.Errorf("AllFolders = %v, want %v", paths, want)
	}
}
