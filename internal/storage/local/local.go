// Package local provides a storage driver on the host file system, rooted
// at the application's private base directory.
package local

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charlievieth/fastwalk"
	"github.com/otiai10/copy"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// Common file permission modes
const (
	DirPermission  = 0o755
	FilePermission = 0o644
)

// Driver implements storage.Driver, storage.Walker and storage.Localizer.
type Driver struct {
	base string
}

// New creates a driver rooted at base, creating the directory if needed.
func New(base string) (*Driver, error) {
	if base == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, DirPermission); err != nil {
		return nil, fmt.Errorf("create base directory %s: %w", abs, err)
	}
	return &Driver{base: abs}, nil
}

// Base returns the absolute base directory.
func (d *Driver) Base() string {
	return d.base
}

// OSPath maps a driver path to a host path.
func (d *Driver) OSPath(p string) string {
	return filepath.Join(d.base, filepath.FromSlash(storage.Clean(p)))
}

// rel maps a host path under base back to a driver path.
func (d *Driver) rel(osPath string) string {
	r := strings.TrimPrefix(osPath, d.base)
	return storage.Clean(filepath.ToSlash(r))
}

func (d *Driver) infoFrom(osPath string, info fs.FileInfo) storage.Info {
	return storage.Info{
		Exists:     true,
		IsDir:      info.IsDir(),
		Size:       info.Size(),
		CreatedAt:  birthTime(osPath),
		ModifiedAt: info.ModTime(),
	}
}

func (d *Driver) Stat(_ context.Context, p string) (storage.Info, error) {
	osPath := d.OSPath(p)
	info, err := os.Stat(osPath)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.Info{}, nil
	}
	if err != nil {
		return storage.Info{}, err
	}
	return d.infoFrom(osPath, info), nil
}

func (d *Driver) ListDirectory(_ context.Context, p string) ([]string, error) {
	entries, err := os.ReadDir(d.OSPath(p))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (d *Driver) CreateDirectory(_ context.Context, p string, intermediates bool) error {
	if intermediates {
		return os.MkdirAll(d.OSPath(p), DirPermission)
	}
	return os.Mkdir(d.OSPath(p), DirPermission)
}

func (d *Driver) Move(_ context.Context, from, to string) error {
	src, dst := d.OSPath(from), d.OSPath(to)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("move to %s: %w", to, fs.ErrExist)
	}

	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	// Rename cannot cross devices: copy, then remove the source
	debug.Log(debug.FS, "local.Move: cross-device move %q -> %q, copying", from, to)
	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	return os.RemoveAll(src)
}

func (d *Driver) Delete(_ context.Context, p string) error {
	osPath := d.OSPath(p)
	info, err := os.Stat(osPath)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(osPath)
	}
	return os.Remove(osPath)
}

func (d *Driver) ReadFileBase64(_ context.Context, p string) (string, error) {
	data, err := os.ReadFile(d.OSPath(p))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (d *Driver) WriteFileBase64(_ context.Context, p, data string) error {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	osPath := d.OSPath(p)
	if err := os.MkdirAll(filepath.Dir(osPath), DirPermission); err != nil {
		return err
	}
	return os.WriteFile(osPath, raw, FilePermission)
}

// Walk visits every descendant of root using fastwalk. Symlinks are not
// followed so a link to a parent directory cannot loop.
func (d *Driver) Walk(ctx context.Context, root string, fn storage.WalkFunc) error {
	osRoot := d.OSPath(root)
	conf := &fastwalk.Config{Follow: false}

	return fastwalk.Walk(conf, osRoot, func(fullPath string, de fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel := d.rel(fullPath)
		if err != nil {
			debug.Log(debug.FS_WALK, "local.Walk: error at %q: %v", rel, err)
			return fn(rel, storage.Info{}, err)
		}
		if fullPath == osRoot {
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, de)
		if err != nil {
			return fn(rel, storage.Info{}, err)
		}

		if err := fn(rel, d.infoFrom(fullPath, info), nil); err != nil {
			if errors.Is(err, storage.SkipDir) {
				if de.IsDir() {
					return fastwalk.SkipDir
				}
				return nil
			}
			return err
		}
		return nil
	})
}
