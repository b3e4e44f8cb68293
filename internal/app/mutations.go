package app

import (
	"context"
	"errors"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/mutation"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
)

// ErrNoPending is returned when completing a move or restore that was never
// begun, or was already completed or cancelled.
var ErrNoPending = errors.New("no pending operation")

// Every mutation re-lists the current location once it returns, so the
// optimistic patch is replaced by what storage actually holds.

// CreateFolder creates name in the current directory. The Recently Deleted
// view holds no folders.
func (s *Session) CreateFolder(ctx context.Context, name string) (domain.FolderEntry, error) {
	if s.nav.InRecentlyDeleted() {
		return domain.FolderEntry{}, &domain.InvalidNameError{Name: name, Reason: "folders cannot be created in Recently Deleted"}
	}
	defer s.Refresh()
	return s.engine.CreateFolder(ctx, s.nav.CurrentPath(), name)
}

func (s *Session) RenameFolder(ctx context.Context, p domain.PathSegments, newName string) (domain.PathSegments, error) {
	defer s.Refresh()
	return s.engine.RenameFolder(ctx, p, newName)
}

// RenameFile renames a recording, keeping its extension.
func (s *Session) RenameFile(ctx context.Context, p domain.PathSegments, newBase string) (domain.PathSegments, error) {
	defer s.Refresh()
	return s.engine.RenameFile(ctx, p, newBase)
}

// DeleteFolder moves the recordings under p to Recently Deleted and removes
// the folder.
func (s *Session) DeleteFolder(ctx context.Context, p domain.PathSegments) (domain.BatchResult, error) {
	defer s.Refresh()
	return s.engine.DeleteFolder(ctx, p)
}

// DeleteAudioFile soft-deletes p, or deletes it permanently while the
// Recently Deleted view is open.
func (s *Session) DeleteAudioFile(ctx context.Context, p domain.PathSegments) (domain.PathSegments, error) {
	defer s.Refresh()
	return s.engine.DeleteAudioFile(ctx, p, s.nav.InRecentlyDeleted())
}

// EmptyRecentlyDeleted permanently removes every soft-deleted recording.
func (s *Session) EmptyRecentlyDeleted(ctx context.Context) (domain.BatchResult, error) {
	defer s.Refresh()
	return s.engine.EmptyRecentlyDeleted(ctx)
}

// Moves

// BeginMove captures p for a move whose destination is picked later.
func (s *Session) BeginMove(p domain.PathSegments) domain.PendingMove {
	pm := domain.PendingMove{ItemName: p.Base(), SourcePath: p.Clone()}

	s.mu.Lock()
	s.pendingMove, s.movePaths = &pm, []domain.PathSegments{p.Clone()}
	s.pendingRestore, s.restoreNames = nil, nil
	s.mu.Unlock()
	return pm
}

// BeginBatchMove captures a multi-selection for a move.
func (s *Session) BeginBatchMove(paths []domain.PathSegments) domain.PendingMove {
	pm := domain.PendingMove{IsBatch: true, BatchIDs: make(map[string]struct{}, len(paths))}
	kept := make([]domain.PathSegments, 0, len(paths))
	for _, p := range paths {
		id := pathutil.ID(pathutil.Abs(p))
		if _, dup := pm.BatchIDs[id]; dup {
			continue
		}
		pm.BatchIDs[id] = struct{}{}
		kept = append(kept, p.Clone())
	}

	s.mu.Lock()
	s.pendingMove, s.movePaths = &pm, kept
	s.pendingRestore, s.restoreNames = nil, nil
	s.mu.Unlock()
	return pm
}

// PendingMove returns the captured move, if any.
func (s *Session) PendingMove() (domain.PendingMove, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingMove == nil {
		return domain.PendingMove{}, false
	}
	return *s.pendingMove, true
}

// CompleteMove moves the captured selection into destDir and clears it.
func (s *Session) CompleteMove(ctx context.Context, destDir domain.PathSegments) (domain.BatchResult, error) {
	s.mu.Lock()
	pm, paths := s.pendingMove, s.movePaths
	s.pendingMove, s.movePaths = nil, nil
	s.mu.Unlock()
	if pm == nil {
		return domain.BatchResult{}, ErrNoPending
	}
	defer s.Refresh()

	if !pm.IsBatch {
		if _, err := s.engine.MoveItem(ctx, pm.SourcePath, destDir, ""); err != nil {
			return domain.BatchResult{}, err
		}
		return domain.BatchResult{SuccessCount: 1}, nil
	}

	items := make([]mutation.MoveRequest, len(paths))
	for i, p := range paths {
		items[i] = mutation.MoveRequest{Source: p}
	}
	res := s.engine.MoveBatch(ctx, items, destDir)
	return res, res.Err()
}

// Restores

// BeginRestore captures a soft-deleted recording (a path inside the
// Recently Deleted store) and suggests where it came from.
func (s *Session) BeginRestore(ctx context.Context, p domain.PathSegments) domain.PendingRestore {
	pr := domain.PendingRestore{
		ItemName:           p.Base(),
		SourcePath:         domain.PathSegments{p.Base()},
		SuggestedDirectory: s.engine.SuggestedRestoreDirectory(ctx, p),
	}

	s.mu.Lock()
	s.pendingRestore, s.restoreNames = &pr, []string{p.Base()}
	s.pendingMove, s.movePaths = nil, nil
	s.mu.Unlock()
	return pr
}

// BeginBatchRestore captures several soft-deleted recordings. The
// suggestion is the root.
func (s *Session) BeginBatchRestore(paths []domain.PathSegments) domain.PendingRestore {
	pr := domain.PendingRestore{
		IsBatch:            true,
		BatchIDs:           make(map[string]struct{}, len(paths)),
		SuggestedDirectory: domain.PathSegments{},
	}
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		id := pathutil.ID(pathutil.Abs(p))
		if _, dup := pr.BatchIDs[id]; dup {
			continue
		}
		pr.BatchIDs[id] = struct{}{}
		names = append(names, p.Base())
	}

	s.mu.Lock()
	s.pendingRestore, s.restoreNames = &pr, names
	s.pendingMove, s.movePaths = nil, nil
	s.mu.Unlock()
	return pr
}

// PendingRestore returns the captured restore, if any.
func (s *Session) PendingRestore() (domain.PendingRestore, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingRestore == nil {
		return domain.PendingRestore{}, false
	}
	return *s.pendingRestore, true
}

// CompleteRestore restores the captured recordings into destDir and clears
// the selection.
func (s *Session) CompleteRestore(ctx context.Context, destDir domain.PathSegments) (domain.BatchResult, error) {
	s.mu.Lock()
	pr, names := s.pendingRestore, s.restoreNames
	s.pendingRestore, s.restoreNames = nil, nil
	s.mu.Unlock()
	if pr == nil {
		return domain.BatchResult{}, ErrNoPending
	}
	defer s.Refresh()

	var res domain.BatchResult
	for _, name := range names {
		src := domain.PathSegments{pathutil.RecentlyDeletedDir, name}
		if _, err := s.engine.RestoreAudioFile(ctx, src, destDir); err != nil {
			if !pr.IsBatch {
				return res, err
			}
			res.Failed = append(res.Failed, domain.FailedItem{Name: name, Err: err})
			continue
		}
		res.SuccessCount++
	}
	return res, res.Err()
}

// CancelPending drops any captured move or restore.
func (s *Session) CancelPending() {
	s.mu.Lock()
	s.pendingMove, s.movePaths = nil, nil
	s.pendingRestore, s.restoreNames = nil, nil
	s.mu.Unlock()
}
