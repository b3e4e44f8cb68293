// Package fs lists and classifies directory contents and runs listing and
// search requests off the caller's goroutine.
package fs

import (
	"context"
	"sync"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/search"
)

type OpType int

const (
	FetchDir OpType = iota
	SearchDir
	CancelSearch
)

func (o OpType) String() string {
	switch o {
	case FetchDir:
		return "fetch"
	case SearchDir:
		return "search"
	case CancelSearch:
		return "cancel"
	}
	return "unknown"
}

type Request struct {
	Op      OpType
	Path    string // driver path for FetchDir
	Query   string
	Filters search.Filters
	Root    domain.PathSegments // search root, relative to the recordings root
	Gen     int64               // Generation counter to track stale requests
}

type Response struct {
	Op        OpType
	Path      string
	Listing   *domain.Listing
	Results   search.Results
	Err       error
	Gen       int64 // Generation counter from request
	Cancelled bool  // True if search was cancelled
}

// System serves Requests from RequestChan and answers on ResponseChan.
// Responses carry the request's Gen; the receiver decides whether they are
// still wanted.
type System struct {
	RequestChan  chan Request
	ResponseChan chan Response

	lister  *Lister
	indexer *search.Indexer

	// Cancellation support
	cancelMu   sync.Mutex
	cancelFunc context.CancelFunc
	searches   sync.WaitGroup
}

func NewSystem(l *Lister, ix *search.Indexer) *System {
	return &System{
		RequestChan:  make(chan Request, 10),
		ResponseChan: make(chan Response, 10),
		lister:       l,
		indexer:      ix,
	}
}

// Start processes requests until RequestChan is closed, then waits for
// running searches and closes ResponseChan.
func (s *System) Start(ctx context.Context) {
	defer close(s.ResponseChan)
	defer s.searches.Wait()
	defer s.cancelSearch()

	for req := range s.RequestChan {
		debug.Log(debug.FS, "Request: op=%s path=%q query=%q gen=%d", req.Op, req.Path, req.Query, req.Gen)

		switch req.Op {
		case CancelSearch:
			// No response: the search goroutine reports itself as cancelled
			s.cancelSearch()

		case FetchDir:
			listing, err := s.lister.List(ctx, req.Path)
			resp := Response{Op: FetchDir, Path: req.Path, Listing: listing, Err: err, Gen: req.Gen}
			debug.Log(debug.FS, "FetchDir response: path=%q gen=%d err=%v", resp.Path, resp.Gen, resp.Err)
			s.ResponseChan <- resp

		case SearchDir:
			s.cancelMu.Lock()
			if s.cancelFunc != nil {
				debug.Log(debug.FS, "Cancelling previous search before new one")
				s.cancelFunc()
			}
			sctx, cancel := context.WithCancel(ctx)
			s.cancelFunc = cancel
			s.cancelMu.Unlock()

			// Run search in goroutine so listings and cancels are not blocked
			s.searches.Add(1)
			go func(ctx context.Context, req Request) {
				defer s.searches.Done()
				res, err := s.indexer.Search(ctx, req.Query, req.Filters, req.Root)
				resp := Response{Op: SearchDir, Path: req.Path, Results: res, Err: err, Gen: req.Gen}
				if ctx.Err() != nil {
					resp.Cancelled = true
					resp.Err = nil
					debug.Log(debug.FS, "Search cancelled (gen %d)", req.Gen)
				}
				debug.Log(debug.FS, "SearchDir response: folders=%d files=%d gen=%d cancelled=%v",
					len(res.Folders), len(res.AudioFiles), resp.Gen, resp.Cancelled)
				s.ResponseChan <- resp
			}(sctx, req)
		}
	}
}

func (s *System) cancelSearch() {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
}
