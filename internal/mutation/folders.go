package mutation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/state"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

// CreateFolder creates name inside parent and returns the new entry.
func (e *Engine) CreateFolder(ctx context.Context, parent domain.PathSegments, name string) (domain.FolderEntry, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.FolderEntry{}, err
	}
	if err := rejectReserved(parent.Child(name)); err != nil {
		return domain.FolderEntry{}, err
	}
	if err := e.requireDir(ctx, parent); err != nil {
		return domain.FolderEntry{}, err
	}
	if err := e.checkSibling(ctx, parent, name); err != nil {
		return domain.FolderEntry{}, err
	}

	p := parent.Child(name)
	abs := pathutil.Abs(p)
	entry := domain.FolderEntry{ID: pathutil.ID(abs), Name: name, Path: p}

	h := e.owner.Begin(pathutil.Abs(parent), state.AddFolder(entry))
	if err := e.deps.Driver.CreateDirectory(ctx, abs, false); err != nil {
		return domain.FolderEntry{}, fail(h, "create folder", p, err)
	}
	logOp("CreateFolder: %q", p)
	return entry, nil
}

// RenameFolder renames the folder at p. Everything inside moves with it.
func (e *Engine) RenameFolder(ctx context.Context, p domain.PathSegments, newName string) (domain.PathSegments, error) {
	newName, err := cleanName(newName)
	if err != nil {
		return nil, err
	}
	info, err := e.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir {
		return nil, &domain.NotFoundError{Path: p.String()}
	}
	return e.rename(ctx, p, newName)
}

// RenameFile renames the recording at p to newBase plus its current
// extension.
func (e *Engine) RenameFile(ctx context.Context, p domain.PathSegments, newBase string) (domain.PathSegments, error) {
	_, ext := pathutil.SplitExt(p.Base())
	newBase = pathutil.SanitizeName(newBase)
	if b, x := pathutil.SplitExt(newBase); ext != "" && strings.EqualFold(x, ext) {
		newBase = b
	}
	newName, err := cleanName(newBase)
	if err != nil {
		return nil, err
	}
	newName += ext

	info, err := e.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, &domain.NotFoundError{Path: p.String()}
	}
	return e.rename(ctx, p, newName)
}

func (e *Engine) rename(ctx context.Context, p domain.PathSegments, newName string) (domain.PathSegments, error) {
	if len(p) == 0 {
		return nil, &domain.InvalidNameError{Name: newName, Reason: "the root cannot be renamed"}
	}
	if err := rejectReserved(p); err != nil {
		return nil, err
	}
	parent := p.Parent()
	if newName == p.Base() {
		return p, nil
	}
	if err := rejectReserved(parent.Child(newName)); err != nil {
		return nil, err
	}
	// A case-only rename keeps the same entry on case-insensitive stores
	if !strings.EqualFold(newName, p.Base()) {
		if err := e.checkSibling(ctx, parent, newName); err != nil {
			return nil, err
		}
	}

	from, np := pathutil.Abs(p), parent.Child(newName)
	to := pathutil.Abs(np)
	e.releasePlayback(from)

	h := e.owner.Begin(pathutil.Abs(parent), state.Rename(p, newName, pathutil.ID(to), to, np))
	if err := e.deps.Driver.Move(ctx, from, to); err != nil {
		return nil, fail(h, "rename", p, err)
	}
	e.invalidate(from, to)
	logOp("Rename: %q -> %q", p, np)
	return np, nil
}

// DeleteFolder removes the folder at p. Every recording anywhere inside it
// is first moved to Recently Deleted; SuccessCount is the number preserved.
// When any recording could not be preserved the folder is left in place
// and the failures are reported.
func (e *Engine) DeleteFolder(ctx context.Context, p domain.PathSegments) (domain.BatchResult, error) {
	var res domain.BatchResult
	if len(p) == 0 {
		return res, &domain.InvalidNameError{Name: "", Reason: "the root cannot be deleted"}
	}
	if err := rejectReserved(p); err != nil {
		return res, err
	}
	info, err := e.stat(ctx, p)
	if err != nil {
		return res, err
	}
	if !info.IsDir {
		return res, &domain.NotFoundError{Path: p.String()}
	}

	abs := pathutil.Abs(p)
	audio, walkErrs := e.collectAudio(ctx, abs)
	res.Failed = append(res.Failed, walkErrs...)
	e.releasePlayback(abs)

	h := e.owner.Begin(pathutil.Abs(p.Parent()), state.Remove(p))
	for _, segs := range audio {
		if _, err := e.deps.Trash.MoveToTrash(ctx, segs); err != nil {
			res.Failed = append(res.Failed, domain.FailedItem{Name: segs.Base(), Err: err})
			continue
		}
		e.invalidate(pathutil.Abs(segs))
		res.SuccessCount++
	}

	if len(res.Failed) > 0 {
		h.Rollback()
		logOp("DeleteFolder: %q kept, %d preserved, %d failed", p, res.SuccessCount, len(res.Failed))
		return res, nil
	}
	if err := e.deps.Driver.Delete(ctx, abs); err != nil {
		return res, fail(h, "delete folder", p, err)
	}
	e.invalidate(abs)
	logOp("DeleteFolder: %q removed, %d recordings preserved", p, res.SuccessCount)
	return res, nil
}

// collectAudio returns every recording under abs, relative to the
// recordings root, in path order. Unreadable directories are returned as
// failures.
func (e *Engine) collectAudio(ctx context.Context, abs string) ([]domain.PathSegments, []domain.FailedItem) {
	var (
		mu     sync.Mutex
		paths  []string
		failed []domain.FailedItem
	)
	storage.WalkTree(ctx, e.deps.Driver, abs, func(p string, info storage.Info, err error) error {
		name := p[strings.LastIndex(p, "/")+1:]
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = append(failed, domain.FailedItem{Name: name, Err: err})
			return nil
		}
		if !info.IsDir && e.deps.IsAudio(name) {
			paths = append(paths, p)
		}
		return nil
	})
	sort.Strings(paths)

	out := make([]domain.PathSegments, 0, len(paths))
	for _, p := range paths {
		if segs, ok := pathutil.Rel(pathutil.RootDir, p); ok {
			out = append(out, segs)
		}
	}
	return out, failed
}
