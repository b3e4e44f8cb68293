package mutation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
)

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "hello/take.m4a", "hello/other.m4a")
	f.show(t, "recordings/hello")

	moved, err := f.engine.DeleteAudioFile(ctx, segs("hello/take.m4a"), false)
	if err != nil {
		t.Fatalf("DeleteAudioFile: %v", err)
	}
	if moved.String() != "recently-deleted/take.m4a" {
		t.Errorf("moved to %q", moved)
	}
	if got := f.owner.Snapshot().Files; len(got) != 1 || got[0].Name != "other.m4a" {
		t.Errorf("optimistic listing = %+v", got)
	}
	if got := f.engine.SuggestedRestoreDirectory(ctx, moved); got.String() != "hello" {
		t.Errorf("suggested = %q", got)
	}

	restored, err := f.engine.RestoreAudioFile(ctx, moved, segs("hello"))
	if err != nil {
		t.Fatalf("RestoreAudioFile: %v", err)
	}
	if restored.String() != "hello/take.m4a" {
		t.Errorf("restored to %q", restored)
	}
	if names := fileNames(f.list(t, "recordings/hello")); strings.Join(names, ",") != "other.m4a,take.m4a" {
		t.Errorf("hello = %v", names)
	}
	if names := fileNames(f.list(t, "recordings/recently-deleted")); len(names) != 0 {
		t.Errorf("store still holds %v", names)
	}
}

func TestDeleteAudioFileStopsPlayback(t *testing.T) {
	f := newFixture(t, "take.m4a")
	f.playback.current = "recordings/take.m4a"

	if _, err := f.engine.DeleteAudioFile(context.Background(), segs("take.m4a"), false); err != nil {
		t.Fatal(err)
	}
	if f.playback.stops != 1 {
		t.Error("playback was not stopped before delete")
	}
}

func TestDeleteAudioFilePermanentInStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "take.m4a")

	moved, _ := f.engine.DeleteAudioFile(ctx, segs("take.m4a"), false)
	got, err := f.engine.DeleteAudioFile(ctx, moved, true)
	if err != nil || got != nil {
		t.Fatalf("permanent delete = %v, %v", got, err)
	}
	if f.exists("recordings/recently-deleted/take.m4a") {
		t.Error("file still in store")
	}
	if f.exists("recordings/recently-deleted/.info/take.m4a.trashinfo") {
		t.Error("trashinfo left behind")
	}
	if _, err := f.engine.DeleteAudioFile(ctx, moved, true); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestRestoreRequiresStorePath(t *testing.T) {
	f := newFixture(t, "take.m4a")
	_, err := f.engine.RestoreAudioFile(context.Background(), segs("take.m4a"), nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestRestoreCollisionGetsSuffix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a/take.m4a")
	moved, _ := f.engine.DeleteAudioFile(ctx, segs("a/take.m4a"), false)
	f.mem.WriteFileBase64(ctx, "recordings/a/take.m4a", "")

	got, err := f.engine.RestoreAudioFile(ctx, moved, segs("a"))
	if err != nil || got.String() != "a/take (1).m4a" {
		t.Errorf("restore = %q, %v", got, err)
	}
}

func TestRestoreUsesOriginalName(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a/take.m4a", "b/take.m4a")

	if _, err := f.engine.DeleteAudioFile(ctx, segs("a/take.m4a"), false); err != nil {
		t.Fatal(err)
	}
	second, err := f.engine.DeleteAudioFile(ctx, segs("b/take.m4a"), false)
	if err != nil {
		t.Fatal(err)
	}
	if second.String() != "recently-deleted/take (1).m4a" {
		t.Fatalf("second delete stored as %q", second)
	}

	got, err := f.engine.RestoreAudioFile(ctx, second, segs("b"))
	if err != nil {
		t.Fatalf("RestoreAudioFile: %v", err)
	}
	if got.String() != "b/take.m4a" {
		t.Errorf("restored to %q, want b/take.m4a", got)
	}
	if !f.exists("recordings/recently-deleted/take.m4a") {
		t.Error("the other deleted take was disturbed")
	}
}

func TestDeleteFolderPreservesRecordings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t,
		"Band/take.m4a",
		"Band/notes.txt",
		"Band/live/take.m4a",
		"Band/live/encore.wav",
		"Other/",
	)
	f.show(t, "recordings")

	res, err := f.engine.DeleteFolder(ctx, segs("Band"))
	if err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if res.SuccessCount != 3 || len(res.Failed) != 0 {
		t.Errorf("result = %+v", res)
	}
	if f.exists("recordings/Band") {
		t.Error("folder still exists")
	}

	names := fileNames(f.list(t, "recordings/recently-deleted"))
	if strings.Join(names, ",") != "encore.wav,take (1).m4a,take.m4a" {
		t.Errorf("store = %v", names)
	}
	if got := folderNames(f.list(t, "recordings")); strings.Join(got, ",") != "Other" {
		t.Errorf("root folders = %v", got)
	}
}

func TestDeleteFolderRejectsRootAndStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.engine.DeleteFolder(ctx, nil); !errors.Is(err, domain.ErrInvalidName) {
		t.Errorf("root: %v", err)
	}
	if _, err := f.engine.DeleteFolder(ctx, segs("recently-deleted")); !errors.Is(err, domain.ErrInvalidName) {
		t.Errorf("store: %v", err)
	}
}

func TestEmptyRecentlyDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "a.m4a", "b.m4a")
	f.engine.DeleteAudioFile(ctx, segs("a.m4a"), false)
	f.engine.DeleteAudioFile(ctx, segs("b.m4a"), false)
	f.show(t, "recordings/recently-deleted")

	res, err := f.engine.EmptyRecentlyDeleted(ctx)
	if err != nil || res.SuccessCount != 2 {
		t.Fatalf("Empty = %+v, %v", res, err)
	}
	if len(f.owner.Snapshot().Files) != 0 {
		t.Error("listing not cleared")
	}
	if names := fileNames(f.list(t, "recordings/recently-deleted")); len(names) != 0 {
		t.Errorf("store = %v", names)
	}
}
