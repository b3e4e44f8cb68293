package search

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage/memfs"
)

func isAudio(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".m4a", ".mp3", ".wav":
		return true
	}
	return false
}

// countingDriver counts listings and walks; it hides the inner driver's
// Walker unless walk is set.
type countingDriver struct {
	storage.Driver
	lists  atomic.Int32
	failAt string
}

func (c *countingDriver) ListDirectory(ctx context.Context, p string) ([]string, error) {
	c.lists.Add(1)
	if p == c.failAt {
		return nil, errors.New("unreadable")
	}
	return c.Driver.ListDirectory(ctx, p)
}

func seed(t *testing.T) *memfs.Driver {
	t.Helper()
	ctx := context.Background()
	d := memfs.New()
	for _, f := range []string{
		"recordings/Song Ideas/riff one.m4a",
		"recordings/hello/Song Ideas/riff two.wav",
		"recordings/hello/notes.txt",
		"recordings/hello/idea list.mp3",
		"recordings/recently-deleted/riff old.m4a",
		"recordings/recently-deleted/.info/riff old.m4a.trashinfo",
	} {
		if err := d.WriteFileBase64(ctx, f, ""); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestSearchEmptyQueryDoesNotTraverse(t *testing.T) {
	c := &countingDriver{Driver: seed(t)}
	ix := NewIndexer(c, isAudio)

	res, err := ix.Search(context.Background(), "  ", DefaultFilters(), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Empty() || res.AudioFiles != nil || res.Folders != nil {
		t.Errorf("empty query returned %+v", res)
	}
	if n := c.lists.Load(); n != 0 {
		t.Errorf("empty query listed %d directories, want 0", n)
	}
}

func TestSearchRecursive(t *testing.T) {
	ix := NewIndexer(seed(t), isAudio)

	res, err := ix.Search(context.Background(), "IDEA", DefaultFilters(), nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	var folders []string
	for _, f := range res.Folders {
		folders = append(folders, f.Path.String())
	}
	if strings.Join(folders, "|") != "hello/Song Ideas|Song Ideas" {
		t.Errorf("folders = %v", folders)
	}
	if len(res.AudioFiles) != 1 || res.AudioFiles[0].Name != "idea list.mp3" {
		t.Fatalf("audio = %+v", res.AudioFiles)
	}
	if got := res.AudioFiles[0].ParentPath.String(); got != "hello" {
		t.Errorf("ParentPath = %q", got)
	}
	if res.Folders[0].ID == res.Folders[1].ID {
		t.Error("same-named folders share an ID")
	}
}

func TestSearchSkipsRecentlyDeletedAndNonAudio(t *testing.T) {
	ix := NewIndexer(seed(t), isAudio)

	res, _ := ix.Search(context.Background(), "riff", DefaultFilters(), nil)
	for _, a := range res.AudioFiles {
		if a.Path[0] == "recently-deleted" {
			t.Errorf("result from the recently deleted store: %v", a.Path)
		}
	}
	if len(res.AudioFiles) != 2 {
		t.Errorf("got %d riffs, want 2", len(res.AudioFiles))
	}

	res, _ = ix.Search(context.Background(), "notes", DefaultFilters(), nil)
	if !res.Empty() {
		t.Errorf("non-audio file matched: %+v", res)
	}
}

func TestSearchFilters(t *testing.T) {
	ix := NewIndexer(seed(t), isAudio)
	ctx := context.Background()

	res, _ := ix.Search(ctx, "idea", Filters{IncludeFolders: true}, nil)
	if len(res.AudioFiles) != 0 || len(res.Folders) != 2 {
		t.Errorf("folders only: %+v", res)
	}

	res, _ = ix.Search(ctx, "riff", Filters{IncludeAudio: true, ScopeToCurrentDirectoryOnly: true}, domain.PathSegments{"hello"})
	if len(res.AudioFiles) != 0 {
		t.Errorf("scoped search recursed: %+v", res.AudioFiles)
	}

	res, _ = ix.Search(ctx, "idea", Filters{IncludeAudio: true, IncludeFolders: true, ScopeToCurrentDirectoryOnly: true}, domain.PathSegments{"hello"})
	if len(res.Folders) != 1 || len(res.AudioFiles) != 1 {
		t.Errorf("scoped search = %+v", res)
	}
}

func TestSearchSkipsUnreadableBranch(t *testing.T) {
	c := &countingDriver{Driver: seed(t), failAt: "recordings/hello"}
	ix := NewIndexer(c, isAudio)

	res, err := ix.Search(context.Background(), "riff", DefaultFilters(), nil)
	if err != nil {
		t.Fatalf("Search failed on one bad branch: %v", err)
	}
	if len(res.AudioFiles) != 1 || res.AudioFiles[0].Name != "riff one.m4a" {
		t.Errorf("partial results = %+v", res.AudioFiles)
	}
}
