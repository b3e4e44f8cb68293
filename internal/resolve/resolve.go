// Package resolve picks the folder a user meant when several folders in the
// tree share a name.
package resolve

import (
	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
	"github.com/Tycholiz/MuziMemo-sub000/internal/pathutil"
)

// BonusPerMatch is added to the similarity score for every matching
// trailing segment.
const BonusPerMatch = 0.01

// FolderID returns the candidate whose full path is target, or else the
// candidate sharing target's base name whose path ends most like target.
// Ties go to the earlier candidate.
func FolderID(candidates []domain.FolderEntry, target string) (domain.FolderEntry, error) {
	want := pathutil.Split(target)

	for _, c := range candidates {
		if c.Path.Equal(want) {
			return c, nil
		}
	}

	base := want.Base()
	best, bestScore := -1, -1.0
	for i, c := range candidates {
		if base == "" || c.Name != base {
			continue
		}
		if s := Similarity(c.Path, want); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return domain.FolderEntry{}, &domain.NotFoundError{Path: target}
	}

	debug.Log(debug.NAV, "resolve: %q -> %q (score %.3f)", target, candidates[best].Path, bestScore)
	return candidates[best], nil
}

// Similarity compares a and b from their last segment backward. The score
// is the number of consecutive matching trailing segments divided by the
// longer length, plus BonusPerMatch for each of them.
func Similarity(a, b domain.PathSegments) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}
	matches := 0
	for i, j := len(a)-1, len(b)-1; i >= 0 && j >= 0; i, j = i-1, j-1 {
		if a[i] != b[j] {
			break
		}
		matches++
	}
	return float64(matches)/float64(longest) + BonusPerMatch*float64(matches)
}
