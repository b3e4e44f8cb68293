package fs

import (
	"context"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/media"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// DefaultExtensions are the recording formats shown in listings.
var DefaultExtensions = []string{".m4a", ".mp3", ".wav"}

// sanityEpoch is the earliest creation time trusted from the platform.
var sanityEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures a Lister.
type Options struct {
	Extensions []string // audio allow-list, with leading dot
	Workers    int      // parallel stat and metadata lookups per listing
}

// Lister classifies directory contents into folders and recordings.
type Lister struct {
	driver  storage.Driver
	meta    media.MetadataProvider
	exts    map[string]bool
	workers int
	now     func() time.Time
}

// NewLister returns a lister. A nil meta reports no durations.
func NewLister(d storage.Driver, meta media.MetadataProvider, opts Options) *Lister {
	if meta == nil {
		meta = media.NopMetadata{}
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Lister{driver: d, meta: meta, exts: set, workers: workers, now: time.Now}
}

// IsAudio reports whether name has an allow-listed extension.
func (l *Lister) IsAudio(name string) bool {
	return l.exts[strings.ToLower(path.Ext(name))]
}

// hidden reports whether a child of dir is left out of listings: dotfiles
// (including the trash metadata directory) and, at the recordings root,
// the Recently Deleted store.
func hidden(dir, name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return storage.Clean(dir) == pathutil.RootDir && name == pathutil.RecentlyDeletedDir
}

// CreatedAt picks the timestamp shown for a recording: the creation time,
// else the modification time, else now when the platform reports zero or
// something before 2000.
func CreatedAt(info storage.Info, now time.Time) time.Time {
	t := info.CreatedAt
	if t.IsZero() {
		t = info.ModifiedAt
	}
	if t.IsZero() || t.Before(sanityEpoch) {
		return now
	}
	return t
}

type child struct {
	folder *domain.FolderEntry
	file   *domain.AudioFileEntry
}

// List returns the classified children of dir, creating dir (and its
// parents) first when it does not exist. Entries that cannot be read are
// skipped; only a failure to list dir itself is an error.
func (l *Lister) List(ctx context.Context, dir string) (*domain.Listing, error) {
	dir = storage.Clean(dir)
	debug.Log(debug.FS, "List: %q", dir)

	if err := l.driver.CreateDirectory(ctx, dir, true); err != nil {
		return nil, &domain.ListError{Path: dir, Err: err}
	}
	names, err := l.driver.ListDirectory(ctx, dir)
	if err != nil {
		return nil, &domain.ListError{Path: dir, Err: err}
	}

	now := l.now()
	children := make([]child, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, name := range names {
		if hidden(dir, name) {
			continue
		}
		i, name := i, name
		g.Go(func() error {
			children[i] = l.classify(gctx, dir, name, now)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, &domain.ListError{Path: dir, Err: err}
	}

	listing := &domain.Listing{
		Path:    dir,
		Folders: make([]domain.FolderEntry, 0),
		Files:   make([]domain.AudioFileEntry, 0),
	}
	for _, c := range children {
		switch {
		case c.folder != nil:
			listing.Folders = append(listing.Folders, *c.folder)
		case c.file != nil:
			listing.Files = append(listing.Files, *c.file)
		}
	}
	SortFolders(listing.Folders)

	debug.Log(debug.FS, "List: %q -> %d folders, %d files", dir, len(listing.Folders), len(listing.Files))
	return listing, nil
}

func (l *Lister) classify(ctx context.Context, dir, name string, now time.Time) child {
	full := storage.Join(dir, name)
	info, err := l.driver.Stat(ctx, full)
	if err != nil || !info.Exists {
		debug.Log(debug.FS_ENTRY, "classify: skipping %q: exists=%v err=%v", full, info.Exists, err)
		return child{}
	}
	segs, _ := pathutil.Rel(pathutil.RootDir, full)

	if info.IsDir {
		count, err := l.countVisible(ctx, full)
		if err != nil {
			debug.Log(debug.FS_ENTRY, "classify: cannot count %q: %v", full, err)
		}
		return child{folder: &domain.FolderEntry{
			ID:        pathutil.ID(full),
			Name:      name,
			Path:      segs,
			ItemCount: count,
		}}
	}

	if !l.IsAudio(name) {
		debug.Log(debug.FS_ENTRY, "classify: %q is not audio", full)
		return child{}
	}

	entry := &domain.AudioFileEntry{
		ID:           pathutil.ID(full),
		Name:         name,
		Path:         segs,
		AbsolutePath: full,
		SizeBytes:    info.Size,
		CreatedAt:    CreatedAt(info, now),
	}
	if secs, ok := l.meta.Duration(ctx, full); ok {
		entry.DurationSeconds = &secs
	}
	return child{file: entry}
}

// countVisible counts the folders and recordings directly inside dir.
func (l *Lister) countVisible(ctx context.Context, dir string) (int, error) {
	names, err := l.driver.ListDirectory(ctx, dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range names {
		if hidden(dir, name) {
			continue
		}
		if l.IsAudio(name) {
			n++
			continue
		}
		info, err := l.driver.Stat(ctx, storage.Join(dir, name))
		if err == nil && info.IsDir {
			n++
		}
	}
	return n, nil
}
