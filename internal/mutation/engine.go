// Package mutation performs the structural changes to the recordings tree.
//
// Every operation validates first, then patches the visible listing
// optimistically, then calls the storage driver. When the driver fails the
// listing is restored from the snapshot taken before the patch and a
// *domain.StorageError is returned. Callers refresh the listing after every
// operation either way.
package mutation

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"strings"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/media"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/state"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
	"github.com/Tycholiz/MuziMemo-sub000/internal/trash"
)

// Invalidator drops cached per-file data for a path, and everything below
// it, that moved, vanished or was newly occupied.
type Invalidator interface {
	InvalidatePrefix(path string)
}

// Deps holds the collaborators an Engine works with. Only Driver is
// required. Without IsAudio every file counts as a recording, so a folder
// delete preserves everything it finds.
type Deps struct {
	Driver   storage.Driver
	Owner    *state.Owner
	Playback media.PlaybackController
	Trash    *trash.Store
	Metadata Invalidator
	IsAudio  func(name string) bool
}

// Engine executes mutations.
type Engine struct {
	deps  Deps
	owner *state.Owner
}

// New returns an engine. A nil Owner is replaced by a private one, so
// optimistic patches are simply not visible anywhere.
func New(deps Deps) *Engine {
	owner := deps.Owner
	if owner == nil {
		owner = state.NewOwner(domain.DefaultSortOption, nil)
	}
	if deps.Playback == nil {
		deps.Playback = media.NopPlayback{}
	}
	if deps.Trash == nil {
		deps.Trash = trash.New(deps.Driver)
	}
	if deps.IsAudio == nil {
		deps.IsAudio = func(string) bool { return true }
	}
	return &Engine{deps: deps, owner: owner}
}

// stat returns the entry at p, or a NotFoundError.
func (e *Engine) stat(ctx context.Context, p domain.PathSegments) (storage.Info, error) {
	if err := pathutil.ValidSegments(p); err != nil {
		return storage.Info{}, err
	}
	info, err := e.deps.Driver.Stat(ctx, pathutil.Abs(p))
	if err != nil {
		return info, &domain.StorageError{Op: "stat", Path: p.String(), Err: err}
	}
	if !info.Exists {
		return info, &domain.NotFoundError{Path: p.String()}
	}
	return info, nil
}

// requireDir returns a NotFoundError unless p is an existing directory. The
// recordings root is created on demand.
func (e *Engine) requireDir(ctx context.Context, p domain.PathSegments) error {
	if len(p) == 0 {
		if err := e.deps.Driver.CreateDirectory(ctx, pathutil.RootDir, true); err != nil {
			return &domain.StorageError{Op: "create root", Path: pathutil.RootDir, Err: err}
		}
		return nil
	}
	info, err := e.stat(ctx, p)
	if err != nil {
		return err
	}
	if !info.IsDir {
		return &domain.NotFoundError{Path: p.String()}
	}
	return nil
}

// checkSibling returns an AlreadyExistsError when dir holds name.
func (e *Engine) checkSibling(ctx context.Context, dir domain.PathSegments, name string) error {
	taken, err := pathutil.SiblingExists(ctx, e.deps.Driver, pathutil.Abs(dir), name)
	if err != nil {
		return &domain.StorageError{Op: "list", Path: dir.String(), Err: err}
	}
	if taken {
		return &domain.AlreadyExistsError{Path: dir.Child(name).String()}
	}
	return nil
}

// cleanName sanitizes and validates a user-supplied name.
func cleanName(name string) (string, error) {
	name = pathutil.SanitizeName(name)
	if err := pathutil.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// rejectReserved also refuses segments that would leave the recordings
// root once joined.
func rejectReserved(p domain.PathSegments) error {
	if err := pathutil.ValidSegments(p); err != nil {
		return err
	}
	if len(p) == 0 || !pathutil.IsReserved(p) {
		return nil
	}
	return &domain.InvalidNameError{Name: p.String(), Reason: "Recently Deleted is managed by the app"}
}

// releasePlayback stops the player when its clip is abs or lies under it.
func (e *Engine) releasePlayback(abs string) {
	current := e.deps.Playback.CurrentPath()
	if current == "" {
		return
	}
	if current != abs && !strings.HasPrefix(current, abs+"/") {
		return
	}
	if err := media.StopIfCurrent(e.deps.Playback, current); err != nil {
		log.Printf("mutation: stopping playback of %s: %v", current, err)
	}
}

func (e *Engine) invalidate(paths ...string) {
	if e.deps.Metadata == nil {
		return
	}
	for _, p := range paths {
		e.deps.Metadata.InvalidatePrefix(p)
	}
}

// fail rolls back h and wraps err for the caller. Taxonomy errors pass
// through unchanged.
func fail(h *state.Optimistic, op string, p domain.PathSegments, err error) error {
	if h.Rollback() {
		log.Printf("mutation: %s %s failed, listing rolled back: %v", op, p, err)
	}
	if domain.IsRecoverable(err) {
		return err
	}
	if errors.Is(err, fs.ErrExist) {
		return &domain.AlreadyExistsError{Path: p.String()}
	}
	return &domain.StorageError{Op: op, Path: p.String(), Err: err}
}

func logOp(format string, args ...interface{}) {
	debug.Log(debug.MUTATE, format, args...)
}
