// Package pathutil holds the path helpers shared by every component: the
// fixed directory layout, name validation, path-derived identifiers and
// sibling-collision handling.
package pathutil

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage"
)

const (
	// RootDir is the recordings root under the app's private storage.
	RootDir = "recordings"

	// RecentlyDeletedDir is the reserved child of RootDir holding soft-deleted files.
	RecentlyDeletedDir = "recently-deleted"

	// MaxNameLength bounds a single folder or file name, in characters.
	MaxNameLength = 255
)

var (
	noSeparators = regexp.MustCompile(`^[^/\\]+$`)

	reservedNames = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// Split turns a slash path into segments, dropping empty, "." and ".."
// segments, so every element of the result is a real name.
func Split(p string) domain.PathSegments {
	clean := storage.Clean(p)
	if clean == "" {
		return domain.PathSegments{}
	}
	return domain.PathSegments(strings.Split(clean, "/"))
}

// Join is the inverse of Split.
func Join(segs domain.PathSegments) string {
	return storage.Join(segs...)
}

// Abs resolves segments under the recordings root to a driver path.
func Abs(segs domain.PathSegments) string {
	return storage.Join(append([]string{RootDir}, segs...)...)
}

// TrashAbs resolves segments under the Recently Deleted store to a driver path.
func TrashAbs(segs domain.PathSegments) string {
	return storage.Join(append([]string{RootDir, RecentlyDeletedDir}, segs...)...)
}

// Rel returns the segments of a driver path relative to root, and false when
// p is not under root.
func Rel(root, p string) (domain.PathSegments, bool) {
	r, t := Split(root), Split(p)
	if !t.HasPrefix(r) {
		return nil, false
	}
	return t[len(r):].Clone(), true
}

// IsReserved reports whether segs points at the Recently Deleted store or
// inside it.
func IsReserved(segs domain.PathSegments) bool {
	return len(segs) > 0 && segs[0] == RecentlyDeletedDir
}

// ValidSegments checks that every segment names a single entry, so segs
// cannot escape the recordings root once joined. Unlike ValidateName it
// accepts any name that already exists on disk.
func ValidSegments(segs domain.PathSegments) error {
	for _, seg := range segs {
		switch {
		case seg == "":
			return &domain.InvalidNameError{Name: segs.String(), Reason: "empty path segment"}
		case seg == "." || seg == "..":
			return &domain.InvalidNameError{Name: segs.String(), Reason: "relative path segment " + seg}
		case !noSeparators.MatchString(seg):
			return &domain.InvalidNameError{Name: segs.String(), Reason: "path segment contains a separator"}
		}
	}
	return nil
}

// SanitizeName trims surrounding whitespace and normalizes to NFC.
func SanitizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidateName checks a user-supplied folder or file name. The name is
// expected to be sanitized already.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, MaxNameLength),
		validation.Match(noSeparators).Error("must not contain / or \\"),
		validation.NotIn(".", "..").Error("is reserved"),
		validation.By(notDeviceName),
	)
	if err != nil {
		return &domain.InvalidNameError{Name: name, Reason: err.Error()}
	}
	return nil
}

func notDeviceName(value interface{}) error {
	s, _ := value.(string)
	base, _ := SplitExt(s)
	if reservedNames[strings.ToUpper(base)] {
		return fmt.Errorf("%q is a reserved device name", s)
	}
	return nil
}

// ID derives a stable identifier from a full driver path. Two entries with
// the same name at different depths always get different IDs.
func ID(p string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(storage.Clean(p))).String()
}

// SplitExt splits "take 1.m4a" into "take 1" and ".m4a". A leading dot is
// part of the base name.
func SplitExt(name string) (base, ext string) {
	ext = path.Ext(name)
	if ext == name {
		return name, ""
	}
	return strings.TrimSuffix(name, ext), ext
}

// Exists reports whether p exists in d.
func Exists(ctx context.Context, d storage.Driver, p string) (bool, error) {
	info, err := d.Stat(ctx, p)
	if err != nil {
		return false, err
	}
	return info.Exists, nil
}

// SiblingExists reports whether dir already holds an entry whose name is
// canonically equal to name. Names are compared in NFC so a decomposed
// "é" collides with a precomposed one.
func SiblingExists(ctx context.Context, d storage.Driver, dir, name string) (bool, error) {
	names, err := d.ListDirectory(ctx, dir)
	if err != nil {
		return false, err
	}
	want := norm.NFC.String(name)
	for _, n := range names {
		if norm.NFC.String(n) == want {
			return true, nil
		}
	}
	return false, nil
}

// UniqueName returns name if dir has no such entry, otherwise the first
// free "base (N).ext" with N starting at 1.
func UniqueName(ctx context.Context, d storage.Driver, dir, name string) (string, error) {
	taken, err := siblingSet(ctx, d, dir)
	if err != nil {
		return "", err
	}
	if !taken[norm.NFC.String(name)] {
		return name, nil
	}

	base, ext := SplitExt(name)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !taken[norm.NFC.String(candidate)] {
			return candidate, nil
		}
	}
}

func siblingSet(ctx context.Context, d storage.Driver, dir string) (map[string]bool, error) {
	info, err := d.Stat(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !info.Exists {
		return map[string]bool{}, nil
	}
	names, err := d.ListDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[norm.NFC.String(n)] = true
	}
	return set, nil
}
