// Package media defines the audio collaborators the core consumes: duration
// lookups and the playback engine.
package media

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
)

// MetadataProvider reports the duration of a recording. It never fails:
// unsupported or corrupt files report ok == false.
type MetadataProvider interface {
	Duration(ctx context.Context, path string) (seconds float64, ok bool)
}

// FallibleMetadataProvider is implemented by providers that can report why
// a duration is unavailable. CachedMetadata prefers it over Duration.
type FallibleMetadataProvider interface {
	DurationErr(ctx context.Context, path string) (seconds float64, err error)
}

// PlaybackController is the audio engine. CurrentPath is the driver path of
// the loaded clip, or "" when nothing is loaded.
type PlaybackController interface {
	CurrentPath() string
	Stop() error
	Unload() error
}

// NopMetadata reports no duration for every file.
type NopMetadata struct{}

func (NopMetadata) Duration(context.Context, string) (float64, bool) { return 0, false }

// NopPlayback never has a clip loaded.
type NopPlayback struct{}

func (NopPlayback) CurrentPath() string { return "" }
func (NopPlayback) Stop() error         { return nil }
func (NopPlayback) Unload() error       { return nil }

type durationResult struct {
	seconds float64
	ok      bool
	err     error // *domain.MetadataExtractionError when the provider failed
}

// CachedMetadata memoizes durations per path and collapses concurrent
// lookups for the same path into one provider call. Provider failures are
// recorded, never returned.
type CachedMetadata struct {
	next  MetadataProvider
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]durationResult
}

// NewCachedMetadata wraps next.
func NewCachedMetadata(next MetadataProvider) *CachedMetadata {
	return &CachedMetadata{
		next:  next,
		cache: make(map[string]durationResult),
	}
}

func (c *CachedMetadata) Duration(ctx context.Context, path string) (float64, bool) {
	c.mu.RLock()
	r, hit := c.cache[path]
	c.mu.RUnlock()
	if hit {
		return r.seconds, r.ok
	}

	v, _, _ := c.group.Do(path, func() (interface{}, error) {
		res := c.lookup(ctx, path)
		// A cancelled lookup is not a verdict about the file
		if ctx.Err() == nil {
			c.mu.Lock()
			c.cache[path] = res
			c.mu.Unlock()
		}
		return res, nil
	})
	res := v.(durationResult)
	if res.err != nil {
		debug.Log(debug.FS_ENTRY, "media: %v", res.err)
	} else if !res.ok {
		debug.Log(debug.FS_ENTRY, "media: no duration for %q", path)
	}
	return res.seconds, res.ok
}

func (c *CachedMetadata) lookup(ctx context.Context, path string) durationResult {
	f, ok := c.next.(FallibleMetadataProvider)
	if !ok {
		s, ok := c.next.Duration(ctx, path)
		return durationResult{seconds: s, ok: ok}
	}
	s, err := f.DurationErr(ctx, path)
	if err != nil {
		return durationResult{err: &domain.MetadataExtractionError{Path: path, Err: err}}
	}
	return durationResult{seconds: s, ok: true}
}

// Err returns the recorded extraction failure for path, if any.
func (c *CachedMetadata) Err(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[path].err
}

// Invalidate drops cached entries for path, e.g. after a move or delete.
func (c *CachedMetadata) Invalidate(path string) {
	c.mu.Lock()
	delete(c.cache, path)
	c.mu.Unlock()
}

// InvalidatePrefix drops path and every cached entry below it, for a
// folder that was renamed, moved or deleted.
func (c *CachedMetadata) InvalidatePrefix(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, path)
	prefix := strings.TrimSuffix(path, "/") + "/"
	for k := range c.cache {
		if strings.HasPrefix(k, prefix) {
			delete(c.cache, k)
		}
	}
}

// StopIfCurrent stops and unloads p when it is the loaded clip. The playback
// engine must release a file before it is moved or removed.
func StopIfCurrent(p PlaybackController, path string) error {
	if p == nil || path == "" || p.CurrentPath() != path {
		return nil
	}
	debug.Log(debug.MUTATE, "media: releasing playback of %q", path)
	if err := p.Stop(); err != nil {
		return err
	}
	return p.Unload()
}

// StopAll stops and unloads whatever is loaded.
func StopAll(p PlaybackController) error {
	if p == nil || p.CurrentPath() == "" {
		return nil
	}
	if err := p.Stop(); err != nil {
		return err
	}
	return p.Unload()
}
