// Package app wires the engines into a Session: one user's navigation,
// listing, search, and mutations over one storage driver.
package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/Tycholiz/MuziMemo-sub000/internal/config"
	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/fs"
	"github.com/Tycholiz/MuziMemo-sub000/internal/media"
	"github.com/Tycholiz/MuziMemo-sub000/internal/mutation"
	"github.com/Tycholiz/MuziMemo-sub000/internal/nav"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
	"github.com/Tycholiz/MuziMemo-sub000/internal/resolve"
	"github.com/Tycholiz/MuziMemo-sub000/internal/search"
	"github.com/Tycholiz/MuziMemo-sub000/internal/share"
	"github.com/Tycholiz/MuziMemo-sub000/internal/state"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
	"github.com/Tycholiz/MuziMemo-sub000/internal/store"
	"github.com/Tycholiz/MuziMemo-sub000/internal/trash"
)

// ErrClosed is returned by operations on a torn down session.
var ErrClosed = errors.New("session closed")

// Deps are the platform collaborators of a Session. Driver is required.
type Deps struct {
	Driver   storage.Driver
	Metadata media.MetadataProvider
	Playback media.PlaybackController
	Prefs    store.Preferences
	Sharer   share.Sharer
	Config   config.Config
}

// Session is the explicit context shared by every screen of the app.
type Session struct {
	cfg      config.Config
	driver   storage.Driver
	playback media.PlaybackController
	prefs    store.Preferences
	sharer   share.Sharer

	nav     *nav.State
	owner   *state.Owner
	meta    *media.CachedMetadata
	lister  *fs.Lister
	indexer *search.Indexer
	system  *fs.System
	trash   *trash.Store
	engine  *mutation.Engine
	watcher *DirectoryWatcher

	changed chan struct{}

	// Guards sends on system.RequestChan against Teardown closing it
	sendMu  sync.RWMutex
	started bool
	closed  bool

	mu             sync.Mutex
	searchGen      int64
	query          string
	results        search.Results
	searchErr      error
	pendingMove    *domain.PendingMove
	movePaths      []domain.PathSegments
	pendingRestore *domain.PendingRestore
	restoreNames   []string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession builds a session. Nothing runs until Init.
func NewSession(deps Deps) *Session {
	if deps.Playback == nil {
		deps.Playback = media.NopPlayback{}
	}
	if deps.Metadata == nil {
		deps.Metadata = media.NopMetadata{}
	}
	cfg := deps.Config

	s := &Session{
		cfg:      cfg,
		driver:   deps.Driver,
		playback: deps.Playback,
		prefs:    deps.Prefs,
		sharer:   deps.Sharer,
		nav:      nav.New(),
		meta:     media.NewCachedMetadata(deps.Metadata),
		changed:  make(chan struct{}, 1),
	}

	sortOpt, err := domain.ParseSortOption(cfg.Library.DefaultSort)
	if err != nil {
		sortOpt = domain.DefaultSortOption
	}
	if s.prefs != nil {
		sortOpt = store.LoadSortOption(s.prefs, sortOpt)
	}
	s.owner = state.NewOwner(sortOpt, s.notify)

	s.lister = fs.NewLister(s.driver, s.meta, fs.Options{
		Extensions: cfg.Library.Extensions,
		Workers:    cfg.Behavior.MetadataWorkers,
	})
	s.indexer = search.NewIndexer(s.driver, s.lister.IsAudio)
	s.system = fs.NewSystem(s.lister, s.indexer)
	s.trash = trash.New(s.driver)
	s.engine = mutation.New(mutation.Deps{
		Driver:   s.driver,
		Owner:    s.owner,
		Playback: s.playback,
		Trash:    s.trash,
		Metadata: s.meta,
		IsAudio:  s.lister.IsAudio,
	})
	return s
}

// Init starts the listing worker and the directory watcher and loads the
// root. It may be called once.
func (s *Session) Init(ctx context.Context) error {
	s.sendMu.Lock()
	if s.started || s.closed {
		s.sendMu.Unlock()
		return errors.New("session already initialized")
	}
	s.started = true
	s.sendMu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)

	if loc, ok := s.driver.(storage.Localizer); ok && s.cfg.Behavior.WatchDirectories {
		w, err := NewDirectoryWatcher(s.cfg.Behavior.WatchDebounce())
		if err != nil {
			log.Printf("app: directory watching disabled: %v", err)
		} else {
			s.watcher = w
			s.wg.Add(1)
			go s.watchLoop(ctx, loc)
		}
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.system.Start(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.processEvents()
	}()

	debug.Log(debug.APP, "Init: driver=%T sort=%s", s.driver, s.owner.SortOption())
	s.requestDir()
	return nil
}

// Teardown stops the worker and the watcher and waits for them to exit.
func (s *Session) Teardown() {
	s.sendMu.Lock()
	if s.closed {
		s.sendMu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	s.sendMu.Unlock()

	if !started {
		return
	}
	close(s.system.RequestChan)
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.cancel()
	s.wg.Wait()
	debug.Log(debug.APP, "Teardown complete")
}

// Changed receives a value after any visible state changes. Notifications
// coalesce; read the snapshots after each one.
func (s *Session) Changed() <-chan struct{} {
	return s.changed
}

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Session) send(req fs.Request) bool {
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if !s.started || s.closed {
		return false
	}
	s.system.RequestChan <- req
	return true
}

// requestDir lists the current location under a fresh ticket.
func (s *Session) requestDir() {
	t := s.nav.BeginLoad()
	if s.send(fs.Request{Op: fs.FetchDir, Path: t.Path, Gen: t.Gen}) {
		s.notify()
	}
}

func (s *Session) processEvents() {
	for resp := range s.system.ResponseChan {
		s.handleFSResponse(resp)
	}
}

func (s *Session) handleFSResponse(resp fs.Response) {
	switch resp.Op {
	case fs.FetchDir:
		if !s.nav.FinishLoad(resp.Gen, resp.Err) {
			debug.Log(debug.APP, "dropping stale listing %q gen=%d", resp.Path, resp.Gen)
			return
		}
		if resp.Err != nil {
			log.Printf("app: listing %s: %v", resp.Path, resp.Err)
			s.owner.Clear()
			s.notify()
			return
		}
		s.owner.SetListing(resp.Listing)
		s.follow(resp.Path)

	case fs.SearchDir:
		s.mu.Lock()
		if resp.Cancelled || resp.Gen != s.searchGen {
			s.mu.Unlock()
			debug.Log(debug.APP, "dropping stale search gen=%d", resp.Gen)
			return
		}
		s.results, s.searchErr = resp.Results, resp.Err
		s.mu.Unlock()
		if resp.Err != nil {
			log.Printf("app: search: %v", resp.Err)
		}
		s.notify()
	}
}

func (s *Session) follow(dir string) {
	if s.watcher == nil {
		return
	}
	loc := s.driver.(storage.Localizer)
	if err := s.watcher.Follow(loc.OSPath(dir)); err != nil {
		debug.Log(debug.WATCH, "follow %s: %v", dir, err)
	}
}

func (s *Session) watchLoop(ctx context.Context, loc storage.Localizer) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case dir, ok := <-s.watcher.Notify():
			if !ok {
				return
			}
			if dir != loc.OSPath(s.nav.ResolveAbsolutePath()) {
				continue
			}
			debug.Log(debug.WATCH, "external change in %s, refreshing", dir)
			s.Refresh()
		}
	}
}

// Navigation

// Nav returns the navigation context.
func (s *Session) Nav() nav.Snapshot { return s.nav.Snapshot() }

// Breadcrumbs returns the location bar entries.
func (s *Session) Breadcrumbs() []nav.Breadcrumb { return s.nav.Breadcrumbs() }

// Listing returns the displayed listing.
func (s *Session) Listing() state.Snapshot { return s.owner.Snapshot() }

func (s *Session) NavigateToFolder(name string) {
	s.nav.NavigateToFolder(name)
	s.requestDir()
}

func (s *Session) NavigateToPath(p domain.PathSegments) {
	s.nav.NavigateToPath(p)
	s.requestDir()
}

func (s *Session) NavigateToRoot() {
	s.nav.NavigateToRoot()
	s.requestDir()
}

func (s *Session) NavigateToBreadcrumb(index int) {
	s.nav.NavigateToBreadcrumb(index)
	s.requestDir()
}

// NavigateToRecentlyDeleted stops playback and opens the Recently Deleted
// view.
func (s *Session) NavigateToRecentlyDeleted() {
	if err := media.StopAll(s.playback); err != nil {
		log.Printf("app: stopping playback: %v", err)
	}
	s.nav.NavigateToRecentlyDeleted()
	s.requestDir()
}

// Refresh re-lists the current location.
func (s *Session) Refresh() {
	s.nav.Refresh()
	s.requestDir()
}

// Sorting

// SetSort reorders the displayed recordings and persists the choice.
func (s *Session) SetSort(opt domain.SortOption) {
	s.owner.SetSort(opt)
	if s.prefs == nil {
		return
	}
	if err := store.SaveSortOption(s.prefs, opt); err != nil {
		log.Printf("app: saving sort option: %v", err)
	}
}

// Search

// Search starts a search for query, replacing any running one. An empty
// query clears the results without touching storage.
func (s *Session) Search(query string, f search.Filters) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.searchGen++
	gen := s.searchGen
	s.query = query
	if query == "" {
		s.results, s.searchErr = search.Results{}, nil
		s.mu.Unlock()
		s.send(fs.Request{Op: fs.CancelSearch})
		s.notify()
		return
	}
	s.mu.Unlock()

	var root domain.PathSegments
	if f.ScopeToCurrentDirectoryOnly {
		root = s.nav.CurrentPath()
	}
	s.send(fs.Request{Op: fs.SearchDir, Query: query, Filters: f, Root: root, Gen: gen})
}

// SubmitSearch records query in the search history, then searches.
func (s *Session) SubmitSearch(query string, f search.Filters) {
	if s.prefs != nil {
		if err := store.AddSearchHistory(s.prefs, query, s.cfg.Search.HistoryLimit); err != nil {
			log.Printf("app: saving search history: %v", err)
		}
	}
	s.Search(query, f)
}

// ClearSearch drops the query and its results.
func (s *Session) ClearSearch() { s.Search("", search.Filters{}) }

// SearchResults returns the query and the latest results for it.
func (s *Session) SearchResults() (string, search.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.results, s.searchErr
}

// SearchHistory returns stored queries, most recent first.
func (s *Session) SearchHistory() []string {
	if s.prefs == nil {
		return nil
	}
	h, err := store.SearchHistory(s.prefs)
	if err != nil {
		log.Printf("app: loading search history: %v", err)
	}
	return h
}

// Folder picker and export

// PickerFolders lists the folders of dir with their recursive item counts.
func (s *Session) PickerFolders(ctx context.Context, dir domain.PathSegments) ([]domain.FolderEntry, error) {
	return s.lister.PickerFolders(ctx, pathutil.Abs(dir))
}

// ResolveSaveFolder finds the folder a stored "saving to" path refers to,
// tolerating folders that share a name.
func (s *Session) ResolveSaveFolder(ctx context.Context, target string) (domain.FolderEntry, error) {
	folders, err := s.lister.AllFolders(ctx)
	if err != nil {
		return domain.FolderEntry{}, err
	}
	return resolve.FolderID(folders, target)
}

// Export shares the recording at p, falling back to a copy in app storage.
func (s *Session) Export(ctx context.Context, p domain.PathSegments) (share.Result, error) {
	return share.Export(ctx, s.driver, s.sharer, pathutil.Abs(p), s.cfg.Behavior.ExportTimeout())
}

// RecentlyDeleted lists the store with original paths and deletion times.
func (s *Session) RecentlyDeleted(ctx context.Context) ([]trash.Item, error) {
	return s.trash.List(ctx)
}
