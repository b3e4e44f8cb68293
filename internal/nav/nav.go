// Package nav owns the user's position in the recordings tree.
//
// Every navigation and refresh bumps a generation counter. A listing request
// captures the generation it was issued for (BeginLoad) and its result is
// committed only while that generation is still current (IsCurrent,
// FinishLoad); anything else is stale and dropped.
package nav

import (
	"sync"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
)

// State is the navigation context of one session.
type State struct {
	mu sync.RWMutex

	currentPath       domain.PathSegments
	inRecentlyDeleted bool
	isLoading         bool
	lastError         error
	refreshToken      int64
	generation        int64
}

// Snapshot is an immutable view of State.
type Snapshot struct {
	CurrentPath       domain.PathSegments
	InRecentlyDeleted bool
	IsLoading         bool
	LastError         error
	RefreshToken      int64
	Generation        int64
}

// Ticket identifies one listing request.
type Ticket struct {
	Gen          int64
	Path         string // driver path to list
	RefreshToken int64
}

// Breadcrumb is one clickable element of the location bar. Index is the
// argument to NavigateToBreadcrumb.
type Breadcrumb struct {
	Name  string
	Index int
}

// New returns a State positioned at the recordings root.
func New() *State {
	return &State{currentPath: domain.PathSegments{}}
}

// bump must be called with mu held.
func (s *State) bump() {
	s.generation++
	s.lastError = nil
}

// NavigateToFolder descends into name. A name that is not a single path
// segment is ignored.
func (s *State) NavigateToFolder(name string) {
	if err := pathutil.ValidSegments(domain.PathSegments{name}); err != nil {
		debug.Log(debug.NAV, "NavigateToFolder: ignored: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPath = s.currentPath.Child(name)
	s.inRecentlyDeleted = false
	s.bump()
	debug.Log(debug.NAV, "NavigateToFolder: %q -> %q gen=%d", name, s.currentPath, s.generation)
}

// NavigateToPath replaces the current path. Calling it twice with the same
// path is the same as calling it once.
func (s *State) NavigateToPath(segs domain.PathSegments) {
	if err := pathutil.ValidSegments(segs); err != nil {
		debug.Log(debug.NAV, "NavigateToPath: ignored: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPath = segs.Clone()
	s.inRecentlyDeleted = false
	s.bump()
	debug.Log(debug.NAV, "NavigateToPath: %q gen=%d", s.currentPath, s.generation)
}

// NavigateToRoot jumps to the recordings root.
func (s *State) NavigateToRoot() {
	s.NavigateToPath(domain.PathSegments{})
}

// NavigateToBreadcrumb truncates the current path to index segments; 0 is
// the root. Out-of-range indexes are clamped.
func (s *State) NavigateToBreadcrumb(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if index > len(s.currentPath) {
		index = len(s.currentPath)
	}
	s.currentPath = s.currentPath[:index].Clone()
	s.inRecentlyDeleted = false
	s.bump()
	debug.Log(debug.NAV, "NavigateToBreadcrumb(%d): %q gen=%d", index, s.currentPath, s.generation)
}

// NavigateToRecentlyDeleted enters the Recently Deleted view. The caller
// must stop any active playback first.
func (s *State) NavigateToRecentlyDeleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPath = domain.PathSegments{}
	s.inRecentlyDeleted = true
	s.bump()
	debug.Log(debug.NAV, "NavigateToRecentlyDeleted gen=%d", s.generation)
}

// Refresh forces a re-list of the current location.
func (s *State) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshToken++
	s.bump()
}

// ResolveAbsolutePath returns the driver path of the current location.
func (s *State) ResolveAbsolutePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked()
}

func (s *State) resolveLocked() string {
	if s.inRecentlyDeleted {
		return pathutil.TrashAbs(s.currentPath)
	}
	return pathutil.Abs(s.currentPath)
}

// CurrentPath returns a copy of the current path.
func (s *State) CurrentPath() domain.PathSegments {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPath.Clone()
}

// InRecentlyDeleted reports whether the Recently Deleted view is active.
func (s *State) InRecentlyDeleted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inRecentlyDeleted
}

// Snapshot returns a copy of the whole context.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CurrentPath:       s.currentPath.Clone(),
		InRecentlyDeleted: s.inRecentlyDeleted,
		IsLoading:         s.isLoading,
		LastError:         s.lastError,
		RefreshToken:      s.refreshToken,
		Generation:        s.generation,
	}
}

// Breadcrumbs returns the location bar for the current path, starting with
// the root.
func (s *State) Breadcrumbs() []Breadcrumb {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rootName := "Recordings"
	if s.inRecentlyDeleted {
		rootName = "Recently Deleted"
	}
	crumbs := make([]Breadcrumb, 0, len(s.currentPath)+1)
	crumbs = append(crumbs, Breadcrumb{Name: rootName, Index: 0})
	for i, seg := range s.currentPath {
		crumbs = append(crumbs, Breadcrumb{Name: seg, Index: i + 1})
	}
	return crumbs
}

// BeginLoad marks a listing as in flight and returns its ticket.
func (s *State) BeginLoad() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = true
	return Ticket{Gen: s.generation, Path: s.resolveLocked(), RefreshToken: s.refreshToken}
}

// IsCurrent reports whether a result for gen may still be committed.
func (s *State) IsCurrent(gen int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen == s.generation
}

// FinishLoad records the outcome of the request for gen. It returns false
// and changes nothing when gen is stale.
func (s *State) FinishLoad(gen int64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		debug.Log(debug.NAV, "FinishLoad: dropping stale gen=%d (current %d)", gen, s.generation)
		return false
	}
	s.isLoading = false
	s.lastError = err
	return true
}
