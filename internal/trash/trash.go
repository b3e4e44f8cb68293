// Package trash implements the Recently Deleted store: a reserved directory
// under the recordings root that soft-deleted recordings are moved into and
// can be restored from.
//
// Each stored file has a metadata record beside it, following the
// freedesktop.org trash layout:
//
//	recently-deleted/take.m4a
//	recently-deleted/.info/take.m4a.trashinfo
//
//	[Trash Info]
//	Path=hello/take.m4a
//	DeletionDate=2024-01-15T10:30:45
package trash

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

const (
	infoDir    = ".info"
	infoSuffix = ".trashinfo"
	dateLayout = "2006-01-02T15:04:05"
)

// Item is a recording in the store.
type Item struct {
	Name         string              // name inside the store
	Path         domain.PathSegments // relative to the recordings root
	OriginalPath domain.PathSegments // where it was deleted from; nil if unknown
	DeletedAt    time.Time
	Size         int64
}

// Store manages the Recently Deleted directory of one driver.
type Store struct {
	driver storage.Driver
	now    func() time.Time
}

// New returns a store over d.
func New(d storage.Driver) *Store {
	return &Store{driver: d, now: time.Now}
}

// Dir returns the driver path of the store.
func Dir() string {
	return pathutil.TrashAbs(nil)
}

func infoPath(name string) string {
	return storage.Join(Dir(), infoDir, name+infoSuffix)
}

// MoveToTrash moves the file at src (relative to the recordings root) into
// the store. A name already taken in the store gets a " (N)" suffix.
func (s *Store) MoveToTrash(ctx context.Context, src domain.PathSegments) (Item, error) {
	from := pathutil.Abs(src)
	info, err := s.driver.Stat(ctx, from)
	if err != nil {
		return Item{}, err
	}
	if !info.Exists {
		return Item{}, &domain.NotFoundError{Path: src.String()}
	}

	if err := s.driver.CreateDirectory(ctx, Dir(), true); err != nil {
		return Item{}, fmt.Errorf("cannot create recently deleted directory: %w", err)
	}
	destName, err := pathutil.UniqueName(ctx, s.driver, Dir(), src.Base())
	if err != nil {
		return Item{}, err
	}

	deletedAt := s.now()
	record := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(src.String()), deletedAt.Format(dateLayout))
	if err := s.driver.WriteFileBase64(ctx, infoPath(destName), base64.StdEncoding.EncodeToString([]byte(record))); err != nil {
		return Item{}, fmt.Errorf("cannot create trashinfo file: %w", err)
	}

	if err := s.driver.Move(ctx, from, storage.Join(Dir(), destName)); err != nil {
		// Clean up info file on failure
		s.driver.Delete(ctx, infoPath(destName))
		return Item{}, fmt.Errorf("cannot move %s to recently deleted: %w", src, err)
	}

	debug.Log(debug.TRASH, "MoveToTrash: %q -> %q", src, destName)
	return Item{
		Name:         destName,
		Path:         domain.PathSegments{pathutil.RecentlyDeletedDir, destName},
		OriginalPath: src.Clone(),
		DeletedAt:    deletedAt,
		Size:         info.Size,
	}, nil
}

// List returns the stored recordings, most recently deleted first.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	info, err := s.driver.Stat(ctx, Dir())
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, nil
	}
	names, err := s.driver.ListDirectory(ctx, Dir())
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		item, err := s.Lookup(ctx, name)
		if err != nil {
			debug.Log(debug.TRASH, "List: skipping %q: %v", name, err)
			continue
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DeletedAt.After(items[j].DeletedAt)
	})
	return items, nil
}

// Lookup returns the stored recording called name.
func (s *Store) Lookup(ctx context.Context, name string) (Item, error) {
	p := storage.Join(Dir(), name)
	info, err := s.driver.Stat(ctx, p)
	if err != nil {
		return Item{}, err
	}
	if !info.Exists {
		return Item{}, &domain.NotFoundError{Path: p}
	}

	item := Item{
		Name:      name,
		Path:      domain.PathSegments{pathutil.RecentlyDeletedDir, name},
		DeletedAt: info.ModifiedAt,
		Size:      info.Size,
	}
	if orig, deletedAt, err := s.readInfo(ctx, name); err == nil {
		item.OriginalPath = orig
		if !deletedAt.IsZero() {
			item.DeletedAt = deletedAt
		}
	}
	return item, nil
}

func (s *Store) readInfo(ctx context.Context, name string) (domain.PathSegments, time.Time, error) {
	data, err := s.driver.ReadFileBase64(ctx, infoPath(name))
	if err != nil {
		return nil, time.Time{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, time.Time{}, err
	}
	return parseTrashInfo(string(raw))
}

func parseTrashInfo(content string) (originalPath domain.PathSegments, deletionDate time.Time, err error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Path=") {
			encoded := strings.TrimPrefix(line, "Path=")
			decoded, err := url.PathUnescape(encoded)
			if err != nil {
				decoded = encoded
			}
			originalPath = pathutil.Split(decoded)
		} else if strings.HasPrefix(line, "DeletionDate=") {
			if t, err := time.ParseInLocation(dateLayout, strings.TrimPrefix(line, "DeletionDate="), time.Local); err == nil {
				deletionDate = t
			}
		}
	}
	return originalPath, deletionDate, scanner.Err()
}

// SuggestedDirectory is the default restore destination for name: the
// directory it was deleted from, or the recordings root when unknown.
func (s *Store) SuggestedDirectory(ctx context.Context, name string) domain.PathSegments {
	orig, _, err := s.readInfo(ctx, name)
	if err != nil || len(orig) == 0 {
		return domain.PathSegments{}
	}
	return orig.Parent()
}

// Restore moves name out of the store into dest (relative to the recordings
// root), creating dest as needed. The file gets back the name it was
// deleted under when that is recorded; a name taken in dest gets a " (N)"
// suffix. It returns the restored file's path.
func (s *Store) Restore(ctx context.Context, name string, dest domain.PathSegments) (domain.PathSegments, error) {
	if pathutil.IsReserved(dest) {
		return nil, &domain.InvalidNameError{Name: dest.String(), Reason: "cannot restore into Recently Deleted"}
	}
	src := storage.Join(Dir(), name)
	info, err := s.driver.Stat(ctx, src)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return nil, &domain.NotFoundError{Path: src}
	}

	destDir := pathutil.Abs(dest)
	if err := s.driver.CreateDirectory(ctx, destDir, true); err != nil {
		return nil, fmt.Errorf("cannot create %s: %w", destDir, err)
	}
	// The store may have suffixed the name; restore under the original one
	want := name
	if orig, _, err := s.readInfo(ctx, name); err == nil && orig.Base() != "" {
		want = orig.Base()
	}
	finalName, err := pathutil.UniqueName(ctx, s.driver, destDir, want)
	if err != nil {
		return nil, err
	}
	if err := s.driver.Move(ctx, src, storage.Join(destDir, finalName)); err != nil {
		return nil, fmt.Errorf("cannot restore %s: %w", name, err)
	}
	s.removeInfo(ctx, name)

	debug.Log(debug.TRASH, "Restore: %q -> %q", name, dest.Child(finalName))
	return dest.Child(finalName), nil
}

// Delete permanently removes name from the store.
func (s *Store) Delete(ctx context.Context, name string) error {
	src := storage.Join(Dir(), name)
	info, err := s.driver.Stat(ctx, src)
	if err != nil {
		return err
	}
	if !info.Exists {
		return &domain.NotFoundError{Path: src}
	}
	if err := s.driver.Delete(ctx, src); err != nil {
		return err
	}
	s.removeInfo(ctx, name)
	debug.Log(debug.TRASH, "Delete: %q", name)
	return nil
}

// Empty permanently removes everything in the store. Items that cannot be
// removed are reported in the result and the rest are still processed.
func (s *Store) Empty(ctx context.Context) (domain.BatchResult, error) {
	var res domain.BatchResult
	items, err := s.List(ctx)
	if err != nil {
		return res, err
	}
	for _, item := range items {
		if err := s.Delete(ctx, item.Name); err != nil {
			res.Failed = append(res.Failed, domain.FailedItem{Name: item.Name, Err: err})
			continue
		}
		res.SuccessCount++
	}
	if len(res.Failed) == 0 {
		// Orphaned records
		if info, err := s.driver.Stat(ctx, storage.Join(Dir(), infoDir)); err == nil && info.Exists {
			s.driver.Delete(ctx, storage.Join(Dir(), infoDir))
		}
	}
	debug.Log(debug.TRASH, "Empty: removed %d, failed %d", res.SuccessCount, len(res.Failed))
	return res, nil
}

func (s *Store) removeInfo(ctx context.Context, name string) {
	p := infoPath(name)
	if info, err := s.driver.Stat(ctx, p); err == nil && info.Exists {
		if err := s.driver.Delete(ctx, p); err != nil {
			debug.Log(debug.TRASH, "removeInfo: %q: %v", p, err)
		}
	}
}
