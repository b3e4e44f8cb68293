package domain

import (
	"fmt"
	"strings"
)

// SortOption orders audio files in a listing. Folders ignore it.
type SortOption int

const (
	SortNameAscending SortOption = iota
	SortNameDescending
	SortDateNewest
	SortDateOldest
)

// DefaultSortOption is used when no preference has been stored.
const DefaultSortOption = SortDateNewest

func (s SortOption) String() string {
	switch s {
	case SortNameAscending:
		return "name-asc"
	case SortNameDescending:
		return "name-desc"
	case SortDateOldest:
		return "date-oldest"
	default:
		return "date-newest"
	}
}

// ParseSortOption accepts the String form plus a few aliases.
func ParseSortOption(s string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name-asc", "name", "a-z":
		return SortNameAscending, nil
	case "name-desc", "z-a":
		return SortNameDescending, nil
	case "date-newest", "newest", "date":
		return SortDateNewest, nil
	case "date-oldest", "oldest":
		return SortDateOldest, nil
	}
	return DefaultSortOption, fmt.Errorf("unknown sort option %q", s)
}
