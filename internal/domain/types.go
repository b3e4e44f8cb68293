// Package domain holds the value types shared by the navigation, listing,
// mutation and search components, plus the error taxonomy they report.
package domain

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PathSegments is a location relative to the recordings root. Segments never
// contain a path separator; an empty sequence means the root itself.
type PathSegments []string

// String joins the segments with "/".
func (p PathSegments) String() string {
	return strings.Join(p, "/")
}

// Clone returns an independent copy.
func (p PathSegments) Clone() PathSegments {
	if p == nil {
		return PathSegments{}
	}
	out := make(PathSegments, len(p))
	copy(out, p)
	return out
}

// Child returns a new path with name appended.
func (p PathSegments) Child(name string) PathSegments {
	out := make(PathSegments, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Parent returns the containing path. The root is its own parent.
func (p PathSegments) Parent() PathSegments {
	if len(p) == 0 {
		return PathSegments{}
	}
	return p[:len(p)-1].Clone()
}

// Base returns the last segment, or "" for the root.
func (p PathSegments) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether both paths have identical segments.
func (p PathSegments) Equal(other PathSegments) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
// The comparison is per segment, so "Song" is not a prefix of "Songs".
func (p PathSegments) HasPrefix(prefix PathSegments) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// FolderEntry is a folder in a listing or in the folder picker.
// ItemCount is the number of visible children in a listing and the total
// recursive number of items when produced by the picker.
type FolderEntry struct {
	ID        string
	Name      string
	Path      PathSegments
	ItemCount int
}

// AudioFileEntry is a recording in a listing.
type AudioFileEntry struct {
	ID              string
	Name            string
	Path            PathSegments // relative to the recordings root
	AbsolutePath    string       // storage driver path
	SizeBytes       int64
	CreatedAt       time.Time
	DurationSeconds *float64 // nil when metadata was unavailable
}

// HumanSize formats SizeBytes for display (e.g. "4.2 MB").
func (e AudioFileEntry) HumanSize() string {
	return humanize.Bytes(uint64(e.SizeBytes))
}

// HumanAge formats CreatedAt relative to now (e.g. "3 hours ago").
func (e AudioFileEntry) HumanAge() string {
	return humanize.Time(e.CreatedAt)
}

// Listing is the classified content of one directory.
type Listing struct {
	Path    string // storage driver path the listing was taken from
	Folders []FolderEntry
	Files   []AudioFileEntry
}

// Clone returns a deep enough copy that mutating slices of the result does
// not affect the receiver.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := &Listing{
		Path:    l.Path,
		Folders: make([]FolderEntry, len(l.Folders)),
		Files:   make([]AudioFileEntry, len(l.Files)),
	}
	copy(out.Folders, l.Folders)
	copy(out.Files, l.Files)
	for i := range out.Folders {
		out.Folders[i].Path = l.Folders[i].Path.Clone()
	}
	for i := range out.Files {
		out.Files[i].Path = l.Files[i].Path.Clone()
	}
	return out
}

// PendingMove is the selection captured when the destination picker opens
// for a move. It is consumed when the move completes or is cancelled.
type PendingMove struct {
	ItemName   string
	SourcePath PathSegments
	IsBatch    bool
	BatchIDs   map[string]struct{}
}

// PendingRestore is the selection captured when the destination picker
// opens for a restore out of Recently Deleted.
type PendingRestore struct {
	ItemName           string
	SourcePath         PathSegments // relative to the Recently Deleted store
	SuggestedDirectory PathSegments // derived from the recorded original path
	IsBatch            bool
	BatchIDs           map[string]struct{}
}
