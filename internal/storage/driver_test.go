package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"/", ""},
		{"recordings", "recordings"},
		{"/recordings/", "recordings"},
		{"recordings//a/./b", "recordings/a/b"},
		{"recordings/../../etc", "etc"},
		{`recordings\a`, "recordings/a"},
	}

	for _, tc := range testCases {
		if got := Clean(tc.in); got != tc.expected {
			t.Errorf("Clean(%q): expected %q, got %q", tc.in, tc.expected, got)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("recordings", "a b", "c.m4a"); got != "recordings/a b/c.m4a" {
		t.Errorf("unexpected join: %q", got)
	}
	if got := Join("", "recordings"); got != "recordings" {
		t.Errorf("unexpected join with empty head: %q", got)
	}
}

// listOnly hides any native Walker so WalkTree takes the fallback path.
type listOnly struct {
	Driver
}

func TestWalkTreeFallback(t *testing.T) {
	ctx := context.Background()
	d := &fakeTree{dirs: map[string][]string{
		"":             {"recordings"},
		"recordings":   {"a", "b.m4a", "bad"},
		"recordings/a": {"c.wav"},
	}, broken: map[string]bool{"recordings/bad": true}}

	var seen []string
	var failed []string
	err := WalkTree(ctx, listOnly{d}, "recordings", func(p string, info Info, err error) error {
		if err != nil {
			failed = append(failed, p)
			return nil
		}
		seen = append(seen, p)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkTree: %v", err)
	}
	want := []string{"recordings/a", "recordings/a/c.wav", "recordings/b.m4a", "recordings/bad"}
	if strings.Join(seen, ",") != strings.Join(want, ",") {
		t.Errorf("seen = %v, want %v", seen, want)
	}
	if len(failed) != 1 || failed[0] != "recordings/bad" {
		t.Errorf("failed = %v", failed)
	}
}

// fakeTree is a read-only Driver over a fixed directory map. Directories in
// broken exist but cannot be listed.
type fakeTree struct {
	dirs   map[string][]string
	broken map[string]bool
}

func (f *fakeTree) Stat(_ context.Context, p string) (Info, error) {
	p = Clean(p)
	if _, ok := f.dirs[p]; ok || f.broken[p] {
		return Info{Exists: true, IsDir: true}, nil
	}
	dir, name := path.Split(p)
	for _, n := range f.dirs[Clean(dir)] {
		if n == name {
			return Info{Exists: true}, nil
		}
	}
	return Info{}, nil
}

func (f *fakeTree) ListDirectory(_ context.Context, p string) ([]string, error) {
	p = Clean(p)
	if f.broken[p] {
		return nil, errors.New("permission denied")
	}
	return f.dirs[p], nil
}

func (f *fakeTree) CreateDirectory(context.Context, string, bool) error { return errors.ErrUnsupported }
func (f *fakeTree) Move(context.Context, string, string) error         { return errors.ErrUnsupported }
func (f *fakeTree) Delete(context.Context, string) error               { return errors.ErrUnsupported }
func (f *fakeTree) ReadFileBase64(context.Context, string) (string, error) {
	return "", errors.ErrUnsupported
}
func (f *fakeTree) WriteFileBase64(context.Context, string, string) error {
	return errors.ErrUnsupported
}
