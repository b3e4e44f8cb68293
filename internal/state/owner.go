// Package state holds the listing the user is looking at and applies
// optimistic patches to it.
//
// A mutation captures the listing before patching it (Begin). On failure
// the captured value is put back (Optimistic.Rollback) instead of running
// an inverse operation.
package state

import (
	"sync"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/fs"
)

// Owner is the single source of truth for the displayed listing.
type Owner struct {
	mu sync.RWMutex

	listing *domain.Listing // folders sorted, files in fetch order
	sortOpt domain.SortOption
	version int64

	onChange func()
}

// Snapshot is an immutable view for rendering. Files are ordered by
// SortOption.
type Snapshot struct {
	Path       string
	Folders    []domain.FolderEntry
	Files      []domain.AudioFileEntry
	SortOption domain.SortOption
	Version    int64
}

// NewOwner returns an empty owner. onChange, when set, is called after
// every change with no lock held.
func NewOwner(opt domain.SortOption, onChange func()) *Owner {
	return &Owner{sortOpt: opt, onChange: onChange}
}

func (o *Owner) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}

// SetListing replaces the listing with a fresh fetch.
func (o *Owner) SetListing(l *domain.Listing) {
	o.mu.Lock()
	o.listing = l.Clone()
	if o.listing != nil {
		fs.SortFolders(o.listing.Folders)
	}
	o.version++
	o.mu.Unlock()
	o.changed()
}

// Clear drops the listing, e.g. when a fetch failed.
func (o *Owner) Clear() {
	o.mu.Lock()
	o.listing = nil
	o.version++
	o.mu.Unlock()
	o.changed()
}

// SetSort changes the file order without refetching.
func (o *Owner) SetSort(opt domain.SortOption) {
	o.mu.Lock()
	o.sortOpt = opt
	o.version++
	o.mu.Unlock()
	o.changed()
}

// SortOption returns the current file order.
func (o *Owner) SortOption() domain.SortOption {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sortOpt
}

// Path returns the driver path of the held listing, or "" when empty.
func (o *Owner) Path() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.listing == nil {
		return ""
	}
	return o.listing.Path
}

// Snapshot returns a copy safe to keep.
func (o *Owner) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snap := Snapshot{SortOption: o.sortOpt, Version: o.version}
	if o.listing == nil {
		return snap
	}
	c := o.listing.Clone()
	snap.Path = c.Path
	snap.Folders = c.Folders
	snap.Files = fs.SortAudioFiles(c.Files, o.sortOpt)
	return snap
}

// Patch edits a listing in place.
type Patch func(l *domain.Listing)

// Optimistic is an applied patch that can still be undone.
type Optimistic struct {
	owner   *Owner
	saved   *domain.Listing
	version int64
	applied bool
}

// Begin captures the listing and applies patch, but only when the listing
// shown is of dir. Otherwise nothing visible changes and the returned
// handle's Rollback is a no-op.
func (o *Owner) Begin(dir string, patch Patch) *Optimistic {
	o.mu.Lock()
	if o.listing == nil || o.listing.Path != dir {
		o.mu.Unlock()
		return &Optimistic{owner: o}
	}
	saved := o.listing.Clone()
	patch(o.listing)
	fs.SortFolders(o.listing.Folders)
	o.version++
	h := &Optimistic{owner: o, saved: saved, version: o.version, applied: true}
	o.mu.Unlock()

	o.changed()
	return h
}

// Applied reports whether the patch reached the visible listing.
func (h *Optimistic) Applied() bool {
	return h.applied
}

// Rollback restores the captured listing. It does nothing when the
// listing has changed since Begin (a refresh already replaced it).
func (h *Optimistic) Rollback() bool {
	if !h.applied {
		return false
	}
	o := h.owner
	o.mu.Lock()
	if o.version != h.version {
		o.mu.Unlock()
		debug.Log(debug.MUTATE, "Rollback: listing replaced since patch (v%d != v%d)", o.version, h.version)
		return false
	}
	o.listing = h.saved
	o.version++
	o.mu.Unlock()

	h.applied = false
	o.changed()
	return true
}
