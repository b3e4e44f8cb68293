package mutation

import (
	"context"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/state"
)

// MoveRequest is one item of a batch move.
type MoveRequest struct {
	Source domain.PathSegments
	Name   string // name in the destination; defaults to the source name
}

// MoveItem moves the folder or recording at src into destDir under name
// (the source name when empty) and returns its new path. Moving an item
// into the directory it is already in is a no-op. An existing entry of the
// same name is never overwritten.
func (e *Engine) MoveItem(ctx context.Context, src, destDir domain.PathSegments, name string) (domain.PathSegments, error) {
	if name == "" {
		name = src.Base()
	}
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, &domain.InvalidNameError{Name: "", Reason: "the root cannot be moved"}
	}
	if err := rejectReserved(src); err != nil {
		return nil, err
	}
	if err := rejectReserved(destDir.Child(name)); err != nil {
		return nil, err
	}

	info, err := e.stat(ctx, src)
	if err != nil {
		return nil, err
	}
	if info.IsDir && destDir.HasPrefix(src) {
		return nil, &domain.CycleError{Source: src.String(), Destination: destDir.String()}
	}
	if err := e.requireDir(ctx, destDir); err != nil {
		return nil, err
	}
	if destDir.Equal(src.Parent()) && name == src.Base() {
		logOp("MoveItem: %q already in %q", src, destDir)
		return src, nil
	}
	if err := e.checkSibling(ctx, destDir, name); err != nil {
		return nil, err
	}

	dst := destDir.Child(name)
	from, to := pathutil.Abs(src), pathutil.Abs(dst)
	e.releasePlayback(from)

	h := e.owner.Begin(pathutil.Abs(src.Parent()), state.Remove(src))
	if err := e.deps.Driver.Move(ctx, from, to); err != nil {
		return nil, fail(h, "move", src, err)
	}
	e.invalidate(from, to)
	logOp("MoveItem: %q -> %q", src, dst)
	return dst, nil
}

// MoveBatch moves every item into destDir. A failing item does not stop
// the others; it is reported by name in the result.
func (e *Engine) MoveBatch(ctx context.Context, items []MoveRequest, destDir domain.PathSegments) domain.BatchResult {
	var res domain.BatchResult
	for _, it := range items {
		if _, err := e.MoveItem(ctx, it.Source, destDir, it.Name); err != nil {
			name := it.Name
			if name == "" {
				name = it.Source.Base()
			}
			res.Failed = append(res.Failed, domain.FailedItem{Name: name, Err: err})
			continue
		}
		res.SuccessCount++
	}
	logOp("MoveBatch: %d moved, %d failed", res.SuccessCount, len(res.Failed))
	return res
}
