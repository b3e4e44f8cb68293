// Package storage defines the boundary to the physical file store.
//
// Paths handed to a Driver are slash-separated and relative to the driver's
// base directory (the application's private storage), e.g.
// "recordings/Song Ideas/take 1.m4a". A leading slash is ignored.
package storage

import (
	"context"
	"io/fs"
	"path"
	"strings"
	"time"
)

// Info is the result of Stat. A missing path yields Exists == false and a
// nil error.
type Info struct {
	Exists     bool
	IsDir      bool
	Size       int64
	CreatedAt  time.Time // zero when the platform cannot report it
	ModifiedAt time.Time
}

// Driver is the primitive file store the core runs on. Implementations
// handle their own timeouts.
type Driver interface {
	Stat(ctx context.Context, path string) (Info, error)

	// ListDirectory returns the names of the immediate children of path.
	ListDirectory(ctx context.Context, path string) ([]string, error)

	// CreateDirectory creates path. With intermediates, missing parents are
	// created and an existing directory is not an error.
	CreateDirectory(ctx context.Context, path string, intermediates bool) error

	// Move relocates a file or a whole directory. It fails with an error
	// matching fs.ErrExist when to already exists.
	Move(ctx context.Context, from, to string) error

	// Delete removes a file, or a directory with everything under it.
	Delete(ctx context.Context, path string) error

	ReadFileBase64(ctx context.Context, path string) (string, error)
	WriteFileBase64(ctx context.Context, path, data string) error
}

// SkipDir may be returned by a WalkFunc to skip a directory's contents.
var SkipDir = fs.SkipDir

// WalkFunc receives every descendant of the walk root. A non-nil err
// reports a path that could not be read; returning nil skips it.
type WalkFunc func(path string, info Info, err error) error

// Walker is implemented by drivers with a native recursive walk. The
// callback may be invoked concurrently from several goroutines.
type Walker interface {
	Walk(ctx context.Context, root string, fn WalkFunc) error
}

// Localizer is implemented by drivers backed by the host file system.
type Localizer interface {
	OSPath(path string) string
}

// Clean normalizes p to the relative form drivers expect: no leading or
// trailing slash, no "." or ".." segments; the base itself is "".
func Clean(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}

// Join joins elements and cleans the result.
func Join(elem ...string) string {
	return Clean(path.Join(elem...))
}
