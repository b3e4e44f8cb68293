package mutation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/storage/memfs"
)

func TestMoveItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "src/take.m4a", "src/keep.wav", "dest/")
	before := fileNames(f.list(t, "recordings/src"))

	moved, err := f.engine.MoveItem(ctx, segs("src/take.m4a"), segs("dest"), "take.m4a")
	if err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	if moved.String() != "dest/take.m4a" || !f.exists("recordings/dest/take.m4a") {
		t.Fatalf("moved to %q", moved)
	}

	back, err := f.engine.MoveItem(ctx, moved, segs("src"), "take.m4a")
	if err != nil {
		t.Fatalf("MoveItem back: %v", err)
	}
	if back.String() != "src/take.m4a" {
		t.Errorf("moved back to %q", back)
	}
	after := fileNames(f.list(t, "recordings/src"))
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Errorf("listing after round trip = %v, want %v", after, before)
	}
}

func TestMoveFolderCarriesSubtree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a/b/c.m4a", "z/")

	if _, err := f.engine.MoveItem(ctx, segs("a"), segs("z"), ""); err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	if !f.exists("recordings/z/a/b/c.m4a") || f.exists("recordings/a") {
		t.Error("subtree not moved")
	}
}

func TestMoveItemErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a/b/", "a/take.m4a", "dest/take.m4a", "Song/", "Songs/")

	testCases := []struct {
		name      string
		src, dest string
		want      error
	}{
		{"into itself", "a", "a", domain.ErrCycle},
		{"into descendant", "a", "a/b", domain.ErrCycle},
		{"missing source", "nope.m4a", "dest", domain.ErrNotFound},
		{"missing destination", "a/take.m4a", "nowhere", domain.ErrNotFound},
		{"destination is a file", "a/b", "dest/take.m4a", domain.ErrNotFound},
		{"name taken", "a/take.m4a", "dest", domain.ErrAlreadyExists},
		{"into recently deleted", "a/take.m4a", "recently-deleted", domain.ErrInvalidName},
	}
	for _, tc := range testCases {
		_, err := f.engine.MoveItem(ctx, segs(tc.src), segs(tc.dest), "")
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}

	// "Song" is not an ancestor of "Songs"
	if _, err := f.engine.MoveItem(ctx, segs("Song"), segs("Songs"), ""); err != nil {
		t.Errorf("sibling with common prefix: %v", err)
	}
}

func TestMutationsRejectEscapingPaths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a/take.m4a", "x/")
	f.mem.CreateDirectory(ctx, "exports", true)

	testCases := []struct {
		name string
		run  func() error
	}{
		{"move out of the root", func() error {
			_, err := f.engine.MoveItem(ctx, segs("a/take.m4a"), segs("../exports"), "")
			return err
		}},
		{"move into the store through ..", func() error {
			_, err := f.engine.MoveItem(ctx, segs("a/take.m4a"), segs("x/../recently-deleted"), "")
			return err
		}},
		{"move a source given with ..", func() error {
			_, err := f.engine.MoveItem(ctx, segs("x/../a/take.m4a"), segs("x"), "")
			return err
		}},
		{"create under ..", func() error {
			_, err := f.engine.CreateFolder(ctx, segs(".."), "escaped")
			return err
		}},
		{"rename through ..", func() error {
			_, err := f.engine.RenameFolder(ctx, segs("x/../a"), "b")
			return err
		}},
		{"delete folder through ..", func() error {
			_, err := f.engine.DeleteFolder(ctx, segs("../exports"))
			return err
		}},
		{"delete file with an empty segment", func() error {
			_, err := f.engine.DeleteAudioFile(ctx, domain.PathSegments{"a", "", "take.m4a"}, false)
			return err
		}},
		{"restore into ..", func() error {
			_, err := f.engine.RestoreAudioFile(ctx, segs("recently-deleted/take.m4a"), segs(".."))
			return err
		}},
		{"segment holding a separator", func() error {
			_, err := f.engine.MoveItem(ctx, domain.PathSegments{"a/take.m4a"}, segs("x"), "")
			return err
		}},
	}
	for _, tc := range testCases {
		if err := tc.run(); !errors.Is(err, domain.ErrInvalidName) {
			t.Errorf("%s: err = %v, want ErrInvalidName", tc.name, err)
		}
	}

	if !f.exists("recordings/a/take.m4a") {
		t.Error("recording left its folder")
	}
	if !f.exists("exports") {
		t.Error("folder outside the root was deleted")
	}
	for _, p := range []string{"exports/take.m4a", "escaped"} {
		if f.exists(p) {
			t.Errorf("%s was created outside the root", p)
		}
	}
}

func TestMoveItemSameParentIsNoop(t *testing.T) {
	f := newFixture(t, "a/take.m4a")
	f.show(t, "recordings/a")
	v := f.owner.Snapshot().Version

	got, err := f.engine.MoveItem(context.Background(), segs("a/take.m4a"), segs("a"), "")
	if err != nil || got.String() != "a/take.m4a" {
		t.Errorf("MoveItem = %q, %v", got, err)
	}
	if f.owner.Snapshot().Version != v {
		t.Error("no-op move touched the listing")
	}
}

func TestMoveItemRollsBack(t *testing.T) {
	ctx := context.Background()
	mem := memfs.New()
	d := &failingDriver{Driver: mem, op: "move", path: "recordings/take.m4a"}
	f := newFixtureOn(t, mem, d, "take.m4a", "dest/")
	f.show(t, "recordings")

	_, err := f.engine.MoveItem(ctx, segs("take.m4a"), segs("dest"), "")
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("err = %v", err)
	}
	if got := f.owner.Snapshot().Files; len(got) != 1 || got[0].Name != "take.m4a" {
		t.Errorf("ghost listing after failed move: %+v", got)
	}
}

func TestMoveBatchPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "one.m4a", "three.m4a", "dest/")

	items := []MoveRequest{
		{Source: segs("one.m4a")},
		{Source: segs("two.m4a"), Name: "two.m4a"},
		{Source: segs("three.m4a")},
	}
	res := f.engine.MoveBatch(ctx, items, segs("dest"))

	if res.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", res.SuccessCount)
	}
	if got := res.FailedNames(); len(got) != 1 || got[0] != "two.m4a" {
		t.Errorf("failed = %v", got)
	}
	if !errors.Is(res.Failed[0].Err, domain.ErrNotFound) {
		t.Errorf("failure reason = %v", res.Failed[0].Err)
	}
	if !f.exists("recordings/dest/one.m4a") || !f.exists("recordings/dest/three.m4a") {
		t.Error("successful items not relocated")
	}
	if res.Err() == nil {
		t.Error("BatchResult.Err() = nil with a failure")
	}
}
