// Package memfs provides an in-memory storage driver on top of afero. It
// backs tests and the command's dry-run mode.
package memfs

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// Driver implements storage.Driver and storage.Walker over an afero.Fs.
type Driver struct {
	fs afero.Fs
}

// New returns a driver over a fresh in-memory file system.
func New() *Driver {
	return &Driver{fs: afero.NewMemMapFs()}
}

// NewWithFs wraps an existing afero file system.
func NewWithFs(fsys afero.Fs) *Driver {
	return &Driver{fs: fsys}
}

// Fs exposes the underlying file system, e.g. to adjust timestamps in tests.
func (d *Driver) Fs() afero.Fs {
	return d.fs
}

// CopyFrom returns an in-memory snapshot of the tree under root in src.
// Writes to the snapshot never reach src.
func CopyFrom(src afero.Fs, root string) (*Driver, error) {
	d := New()
	err := afero.Walk(src, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return rerr
		}
		dst := abs(filepath.ToSlash(rel))
		if info.IsDir() {
			return d.fs.MkdirAll(dst, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := afero.ReadFile(src, p)
		if err != nil {
			return err
		}
		if err := afero.WriteFile(d.fs, dst, data, info.Mode().Perm()); err != nil {
			return err
		}
		return d.fs.Chtimes(dst, info.ModTime(), info.ModTime())
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", root, err)
	}
	return d, nil
}

func abs(p string) string {
	return "/" + storage.Clean(p)
}

func (d *Driver) Stat(_ context.Context, p string) (storage.Info, error) {
	info, err := d.fs.Stat(abs(p))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.Info{}, nil
	}
	if err != nil {
		return storage.Info{}, err
	}
	return toInfo(info), nil
}

// afero reports no birth time, so CreatedAt is left zero.
func toInfo(info os.FileInfo) storage.Info {
	return storage.Info{
		Exists:     true,
		IsDir:      info.IsDir(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

func (d *Driver) ListDirectory(_ context.Context, p string) ([]string, error) {
	infos, err := afero.ReadDir(d.fs, abs(p))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func (d *Driver) CreateDirectory(_ context.Context, p string, intermediates bool) error {
	if intermediates {
		return d.fs.MkdirAll(abs(p), 0o755)
	}
	target := abs(p)
	if _, err := d.fs.Stat(path.Dir(target)); err != nil {
		return &fs.PathError{Op: "mkdir", Path: target, Err: fs.ErrNotExist}
	}
	if _, err := d.fs.Stat(target); err == nil {
		return &fs.PathError{Op: "mkdir", Path: target, Err: fs.ErrExist}
	}
	return d.fs.Mkdir(target, 0o755)
}

func (d *Driver) Move(_ context.Context, from, to string) error {
	src, dst := abs(from), abs(to)
	info, err := d.fs.Stat(src)
	if err != nil {
		return err
	}
	if _, err := d.fs.Stat(dst); err == nil {
		return &fs.PathError{Op: "move", Path: dst, Err: fs.ErrExist}
	}
	if _, err := d.fs.Stat(path.Dir(dst)); err != nil {
		return &fs.PathError{Op: "move", Path: dst, Err: fs.ErrNotExist}
	}
	if !info.IsDir() {
		return d.fs.Rename(src, dst)
	}

	// MemMapFs renames only the directory node, so rebuild the subtree
	err = afero.Walk(d.fs, src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		target := dst + strings.TrimPrefix(p, src)
		if fi.IsDir() {
			return d.fs.MkdirAll(target, fi.Mode().Perm()|0o700)
		}
		return d.fs.Rename(p, target)
	})
	if err != nil {
		return err
	}
	return d.fs.RemoveAll(src)
}

func (d *Driver) Delete(_ context.Context, p string) error {
	target := abs(p)
	info, err := d.fs.Stat(target)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return d.fs.RemoveAll(target)
	}
	return d.fs.Remove(target)
}

func (d *Driver) ReadFileBase64(_ context.Context, p string) (string, error) {
	data, err := afero.ReadFile(d.fs, abs(p))
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
	target := abs(p)
	if err := d.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(d.fs, target, raw, 0o644)
}

func (d *Driver) Walk(ctx context.Context, root string, fn storage.WalkFunc) error {
	base := abs(root)
	return afero.Walk(d.fs, base, func(p string, info os.FileInfo, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel := storage.Clean(p)
		if err != nil {
			return fn(rel, storage.Info{}, err)
		}
		if p == base {
			return nil
		}
		return fn(rel, toInfo(info), nil)
	})
}
