package storage

import (
	"context"
	"errors"
)

// WalkTree visits every descendant of root. It uses the driver's native
// Walker when there is one and falls back to ListDirectory and Stat. A
// directory that cannot be read is reported to fn and, when fn returns nil,
// skipped.
func WalkTree(ctx context.Context, d Driver, root string, fn WalkFunc) error {
	if w, ok := d.(Walker); ok {
		return w.Walk(ctx, root, fn)
	}
	err := walkList(ctx, d, Clean(root), fn)
	if errors.Is(err, SkipDir) {
		return nil
	}
	return err
}

func walkList(ctx context.Context, d Driver, dir string, fn WalkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	names, err := d.ListDirectory(ctx, dir)
	if err != nil {
		return fn(dir, Info{}, err)
	}
	for _, name := range names {
		child := Join(dir, name)
		info, err := d.Stat(ctx, child)
		if err == nil && !info.Exists {
			continue // removed since listing
		}
		if err != nil {
			if err := fn(child, Info{}, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(child, info, nil); err != nil {
			if errors.Is(err, SkipDir) {
				if info.IsDir {
					continue
				}
				return nil
			}
			return err
		}
		if info.IsDir {
			if err := walkList(ctx, d, child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
