package mutation

import (
	"context"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/state"
	"github.com/Tycholiz/MuziMemo-sub000/internal/trash"
)

// DeleteAudioFile deletes the recording at p. Outside the Recently Deleted
// view it is moved into the store and its new path is returned; inside the
// view, or when p already lies in the store, it is removed for good and the
// returned path is nil. The player is released first if p is loaded.
func (e *Engine) DeleteAudioFile(ctx context.Context, p domain.PathSegments, inRecentlyDeleted bool) (domain.PathSegments, error) {
	if len(p) == 0 {
		return nil, &domain.NotFoundError{Path: ""}
	}
	info, err := e.stat(ctx, p)
	if err != nil {
		return nil, err
	}
	// The store is flat: its recordings are exactly two segments deep
	inStore := pathutil.IsReserved(p)
	if info.IsDir || (inStore && len(p) != 2) {
		return nil, &domain.NotFoundError{Path: p.String()}
	}

	abs := pathutil.Abs(p)
	e.releasePlayback(abs)
	h := e.owner.Begin(pathutil.Abs(p.Parent()), state.Remove(p))

	switch {
	case inStore:
		if err := e.deps.Trash.Delete(ctx, p.Base()); err != nil {
			return nil, fail(h, "delete", p, err)
		}
		logOp("DeleteAudioFile: %q removed from Recently Deleted", p)
		return nil, nil

	case inRecentlyDeleted:
		if err := e.deps.Driver.Delete(ctx, abs); err != nil {
			return nil, fail(h, "delete", p, err)
		}
		e.invalidate(abs)
		logOp("DeleteAudioFile: %q removed", p)
		return nil, nil

	default:
		item, err := e.deps.Trash.MoveToTrash(ctx, p)
		if err != nil {
			return nil, fail(h, "soft delete", p, err)
		}
		e.invalidate(abs, pathutil.Abs(item.Path))
		logOp("DeleteAudioFile: %q -> %q", p, item.Path)
		return item.Path, nil
	}
}

// RestoreAudioFile moves the recording at p, which must be in the Recently
// Deleted store, into destDir and returns its new path. destDir and its
// parents are created as needed.
func (e *Engine) RestoreAudioFile(ctx context.Context, p, destDir domain.PathSegments) (domain.PathSegments, error) {
	if !pathutil.IsReserved(p) || len(p) != 2 {
		return nil, &domain.NotFoundError{Path: p.String()}
	}
	if err := rejectReserved(destDir); err != nil {
		return nil, err
	}
	if _, err := e.stat(ctx, p); err != nil {
		return nil, err
	}

	abs := pathutil.Abs(p)
	e.releasePlayback(abs)
	h := e.owner.Begin(trash.Dir(), state.Remove(p))

	restored, err := e.deps.Trash.Restore(ctx, p.Base(), destDir)
	if err != nil {
		return nil, fail(h, "restore", p, err)
	}
	e.invalidate(abs, pathutil.Abs(restored))
	logOp("RestoreAudioFile: %q -> %q", p, restored)
	return restored, nil
}

// SuggestedRestoreDirectory is where p was deleted from, or the root.
func (e *Engine) SuggestedRestoreDirectory(ctx context.Context, p domain.PathSegments) domain.PathSegments {
	if pathutil.ValidSegments(p) != nil {
		return domain.PathSegments{}
	}
	return e.deps.Trash.SuggestedDirectory(ctx, p.Base())
}

// EmptyRecentlyDeleted permanently removes everything in the store.
func (e *Engine) EmptyRecentlyDeleted(ctx context.Context) (domain.BatchResult, error) {
	e.releasePlayback(trash.Dir())
	h := e.owner.Begin(trash.Dir(), func(l *domain.Listing) {
		l.Folders = l.Folders[:0]
		l.Files = l.Files[:0]
	})
	res, err := e.deps.Trash.Empty(ctx)
	if err != nil {
		return res, fail(h, "empty recently deleted", domain.PathSegments{pathutil.RecentlyDeletedDir}, err)
	}
	if len(res.Failed) > 0 {
		h.Rollback()
	}
	logOp("EmptyRecentlyDeleted: %d removed, %d failed", res.SuccessCount, len(res.Failed))
	return res, nil
}
