//go:build !linux

package local

import "time"

// birthTime is unavailable here; callers fall back to the modification time.
func birthTime(path string) time.Time {
	return time.Time{}
}
