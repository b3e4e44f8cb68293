package search

import (
	"context"
	"log"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// Filters narrows a search.
type Filters struct {
	IncludeAudio                bool
	IncludeFolders              bool
	ScopeToCurrentDirectoryOnly bool
}

// DefaultFilters searches everything, recursively.
func DefaultFilters() Filters {
	return Filters{IncludeAudio: true, IncludeFolders: true}
}

// AudioResult is a matching recording. Path and ParentPath are relative to
// the recordings root so the caller can navigate straight to it.
type AudioResult struct {
	ID           string
	Name         string
	Path         domain.PathSegments
	ParentPath   domain.PathSegments
	AbsolutePath string
	SizeBytes    int64
	ModifiedAt   time.Time
}

// FolderResult is a matching folder.
type FolderResult struct {
	ID         string
	Name       string
	Path       domain.PathSegments
	ParentPath domain.PathSegments
}

// Results holds both kinds of matches, each sorted by path.
type Results struct {
	AudioFiles []AudioResult
	Folders    []FolderResult
}

// Empty reports whether nothing matched.
func (r Results) Empty() bool {
	return len(r.AudioFiles) == 0 && len(r.Folders) == 0
}

// Indexer runs name searches against a storage driver.
type Indexer struct {
	driver  storage.Driver
	isAudio func(name string) bool
}

// NewIndexer returns an indexer. isAudio classifies file names; files it
// rejects never appear in results.
func NewIndexer(d storage.Driver, isAudio func(name string) bool) *Indexer {
	return &Indexer{driver: d, isAudio: isAudio}
}

// Search looks for query under root (segments relative to the recordings
// root). Unreadable directories are logged and skipped, so the results may
// be partial. The Recently Deleted store and hidden entries are never
// searched.
func (ix *Indexer) Search(ctx context.Context, query string, f Filters, root domain.PathSegments) (Results, error) {
	q := Parse(query)
	if q.IsEmpty() {
		debug.Log(debug.SEARCH, "Search: empty query, no traversal")
		return Results{}, nil
	}
	if !f.IncludeAudio && !f.IncludeFolders {
		return Results{}, nil
	}

	matcher := NewMatcher(q)
	base := pathutil.Abs(root)
	debug.Log(debug.SEARCH, "Search: query=%q base=%q filters=%+v", query, base, f)

	var (
		mu  sync.Mutex
		res Results
	)
	err := storage.WalkTree(ctx, ix.driver, base, func(p string, info storage.Info, err error) error {
		if err != nil {
			log.Printf("search: skipping %s: %v", p, err)
			return nil
		}

		segs, ok := pathutil.Rel(pathutil.RootDir, p)
		if !ok || len(segs) == 0 {
			return nil
		}
		name := segs.Base()
		if strings.HasPrefix(name, ".") || pathutil.IsReserved(segs) {
			if info.IsDir {
				return storage.SkipDir
			}
			return nil
		}

		if info.IsDir {
			if f.IncludeFolders && matcher.Match(name) {
				mu.Lock()
				res.Folders = append(res.Folders, FolderResult{
					ID:         pathutil.ID(p),
					Name:       name,
					Path:       segs,
					ParentPath: segs.Parent(),
				})
				mu.Unlock()
			}
			if f.ScopeToCurrentDirectoryOnly {
				return storage.SkipDir
			}
			return nil
		}

		if f.IncludeAudio && ix.isAudio(name) && matcher.Match(name) {
			mu.Lock()
			res.AudioFiles = append(res.AudioFiles, AudioResult{
				ID:           pathutil.ID(p),
				Name:         name,
				Path:         segs,
				ParentPath:   segs.Parent(),
				AbsolutePath: p,
				SizeBytes:    info.Size,
				ModifiedAt:   info.ModifiedAt,
			})
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return Results{}, err
	}

	// Walkers may report entries in any order
	sort.Slice(res.Folders, func(i, j int) bool {
		return lessPath(res.Folders[i].Path, res.Folders[j].Path)
	})
	sort.Slice(res.AudioFiles, func(i, j int) bool {
		return lessPath(res.AudioFiles[i].Path, res.AudioFiles[j].Path)
	})

	debug.Log(debug.SEARCH, "Search: %d folders, %d files", len(res.Folders), len(res.AudioFiles))
	return res, nil
}

func lessPath(a, b domain.PathSegments) bool {
	x, y := strings.ToLower(path.Join(a...)), strings.ToLower(path.Join(b...))
	if x != y {
		return x < y
	}
	return a.String() < b.String()
}
