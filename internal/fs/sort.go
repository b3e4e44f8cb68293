package fs

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
)

// newCollator returns a case-insensitive collator. Collators keep internal
// buffers, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.Loose)
}

// SortFolders orders folders by name, case-insensitively, ascending.
// Folders ignore the user's sort option.
func SortFolders(folders []domain.FolderEntry) {
	c := newCollator()
	sort.SliceStable(folders, func(i, j int) bool {
		return c.CompareString(folders[i].Name, folders[j].Name) < 0
	})
}

// SortAudioFiles returns files ordered by opt. The input is not modified and
// equal keys keep their input order.
func SortAudioFiles(files []domain.AudioFileEntry, opt domain.SortOption) []domain.AudioFileEntry {
	out := make([]domain.AudioFileEntry, len(files))
	copy(out, files)

	var less func(a, b domain.AudioFileEntry) bool
	switch opt {
	case domain.SortNameAscending, domain.SortNameDescending:
		c := newCollator()
		desc := opt == domain.SortNameDescending
		less = func(a, b domain.AudioFileEntry) bool {
			if desc {
				return c.CompareString(b.Name, a.Name) < 0
			}
			return c.CompareString(a.Name, b.Name) < 0
		}
	case domain.SortDateOldest:
		less = func(a, b domain.AudioFileEntry) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		less = func(a, b domain.AudioFileEntry) bool { return a.CreatedAt.After(b.CreatedAt) }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
