// Package share hands recordings to the platform share sheet. That call can
// hang indefinitely, so it runs under a hard timeout and falls back to
// copying the file into an exports directory inside app storage.
package share

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// ExportDir is the fallback destination, beside the recordings root.
const ExportDir = "exports"

// DefaultTimeout bounds a Sharer call when none is configured.
const DefaultTimeout = 10 * time.Second

// Sharer is the platform share API. It should return when ctx is done but
// is not trusted to.
type Sharer interface {
	Share(ctx context.Context, path string) error
}

// SharerFunc adapts a function to Sharer.
type SharerFunc func(ctx context.Context, path string) error

func (f SharerFunc) Share(ctx context.Context, path string) error { return f(ctx, path) }

// Result reports how an export completed.
type Result struct {
	Shared       bool   // the platform accepted the file
	FallbackPath string // driver path of the copy when it did not
	Reason       error  // why the fallback was used
}

// Export shares the file at path (a driver path). If sharer is nil, fails,
// or does not return within timeout, the file is copied to ExportDir
// instead.
func Export(ctx context.Context, d storage.Driver, sharer Sharer, path string, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reason := errors.New("no share target available")

	if sharer != nil {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		done := make(chan error, 1)
		go func() { done <- sharer.Share(sctx, path) }()

		select {
		case err := <-done:
			cancel()
			if err == nil {
				debug.Log(debug.APP, "Export: shared %q", path)
				return Result{Shared: true}, nil
			}
			reason = err
		case <-sctx.Done():
			cancel()
			reason = fmt.Errorf("share timed out after %s: %w", timeout, sctx.Err())
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		log.Printf("share: falling back to copy for %s: %v", path, reason)
	}

	dst, err := copyToExports(ctx, d, path)
	if err != nil {
		return Result{Reason: reason}, err
	}
	return Result{FallbackPath: dst, Reason: reason}, nil
}

func copyToExports(ctx context.Context, d storage.Driver, path string) (string, error) {
	data, err := d.ReadFileBase64(ctx, path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := d.CreateDirectory(ctx, ExportDir, true); err != nil {
		return "", err
	}
	name, err := pathutil.UniqueName(ctx, d, ExportDir, pathutil.Split(path).Base())
	if err != nil {
		return "", err
	}
	dst := storage.Join(ExportDir, name)
	if err := d.WriteFileBase64(ctx, dst, data); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	debug.Log(debug.APP, "Export: copied %q to %q", path, dst)
	return dst, nil
}
