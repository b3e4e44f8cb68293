package state

import (
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
)

// AddFolder appends a folder entry.
func AddFolder(f domain.FolderEntry) Patch {
	return func(l *domain.Listing) {
		l.Folders = append(l.Folders, f)
	}
}

// Remove drops the folder or file at p.
func Remove(p domain.PathSegments) Patch {
	return func(l *domain.Listing) {
		folders := l.Folders[:0]
		for _, f := range l.Folders {
			if !f.Path.Equal(p) {
				folders = append(folders, f)
			}
		}
		l.Folders = folders

		files := l.Files[:0]
		for _, f := range l.Files {
			if !f.Path.Equal(p) {
				files = append(files, f)
			}
		}
		l.Files = files
	}
}

// RemoveAll drops every entry whose path is in paths.
func RemoveAll(paths []domain.PathSegments) Patch {
	return func(l *domain.Listing) {
		for _, p := range paths {
			Remove(p)(l)
		}
	}
}

// Rename points the entry at old to a new name, path and ID.
func Rename(old domain.PathSegments, name, id, absPath string, newPath domain.PathSegments) Patch {
	return func(l *domain.Listing) {
		for i := range l.Folders {
			if l.Folders[i].Path.Equal(old) {
				l.Folders[i].Name = name
				l.Folders[i].ID = id
				l.Folders[i].Path = newPath.Clone()
			}
		}
		for i := range l.Files {
			if l.Files[i].Path.Equal(old) {
				l.Files[i].Name = name
				l.Files[i].ID = id
				l.Files[i].Path = newPath.Clone()
				l.Files[i].AbsolutePath = absPath
			}
		}
	}
}
