package fs

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// PickerFolders lists the folders directly inside dir for the destination
// picker. Unlike List, each ItemCount is the total number of folders and
// recordings anywhere below that folder.
func (l *Lister) PickerFolders(ctx context.Context, dir string) ([]domain.FolderEntry, error) {
	listing, err := l.List(ctx, dir)
	if err != nil {
		return nil, err
	}
	folders := listing.Folders

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i := range folders {
		i := i
		g.Go(func() error {
			n, err := l.countRecursive(gctx, pathutil.Abs(folders[i].Path))
			if err != nil {
				return err
			}
			folders[i].ItemCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &domain.ListError{Path: dir, Err: err}
	}
	return folders, nil
}

func (l *Lister) countRecursive(ctx context.Context, dir string) (int, error) {
	var mu sync.Mutex
	n := 0
	err := storage.WalkTree(ctx, l.driver, dir, func(p string, info storage.Info, err error) error {
		if err != nil {
			return nil
		}
		name := p[strings.LastIndex(p, "/")+1:]
		if strings.HasPrefix(name, ".") {
			if info.IsDir {
				return storage.SkipDir
			}
			return nil
		}
		if info.IsDir || l.IsAudio(name) {
			mu.Lock()
			n++
			mu.Unlock()
		}
		return nil
	})
	return n, err
}

// AllFolders enumerates every folder in the recordings tree, excluding the
// Recently Deleted store, sorted by path. ItemCount is not filled in.
func (l *Lister) AllFolders(ctx context.Context) ([]domain.FolderEntry, error) {
	var (
		mu      sync.Mutex
		folders []domain.FolderEntry
	)
	err := storage.WalkTree(ctx, l.driver, pathutil.RootDir, func(p string, info storage.Info, err error) error {
		if err != nil || !info.IsDir {
			return nil
		}
		segs, ok := pathutil.Rel(pathutil.RootDir, p)
		if !ok || len(segs) == 0 {
			return nil
		}
		if pathutil.IsReserved(segs) || strings.HasPrefix(segs.Base(), ".") {
			return storage.SkipDir
		}
		mu.Lock()
		folders = append(folders, domain.FolderEntry{
			ID:   pathutil.ID(p),
			Name: segs.Base(),
			Path: segs,
		})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, &domain.ListError{Path: pathutil.RootDir, Err: err}
	}

	// Depth-first: each folder directly before its subfolders
	c := newCollator()
	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i].Path, folders[j].Path
		for k := 0; k < len(a) && k < len(b); k++ {
			if r := c.CompareString(a[k], b[k]); r != 0 {
				return r < 0
			}
		}
		return len(a) < len(b)
	})
	debug.Log(debug.FS, "AllFolders: %d folders", len(folders))
	return folders, nil
}
