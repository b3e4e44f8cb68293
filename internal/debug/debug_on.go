//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	APP    Category = "APP"    // Session lifecycle, response routing
	NAV    Category = "NAV"    // Navigation state transitions
	FS     Category = "FS"     // Directory listing requests
	MUTATE Category = "MUTATE" // Create, rename, move, delete, restore
	TRASH  Category = "TRASH"  // Recently Deleted store
	SEARCH Category = "SEARCH" // Search indexing and matching
	STORE  Category = "STORE"  // Preference store
	WATCH  Category = "WATCH"  // Directory watcher events

	// Verbose categories
	FS_ENTRY Category = "FS_ENTRY" // Individual entry classification
	FS_WALK  Category = "FS_WALK"  // Recursive walks
)

var (
	enabledCategories = map[Category]bool{
		APP:    true,
		NAV:    true,
		FS:     true,
		MUTATE: true,
		TRASH:  true,
		SEARCH: true,
		STORE:  true,
		WATCH:  true,
		// Verbose categories disabled by default
		FS_ENTRY: false,
		FS_WALK:  false,
	}
	categoryMu sync.RWMutex

	logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
)

func init() {
	// Format: MUZIMEMO_DEBUG=NAV,FS or MUZIMEMO_DEBUG=all or MUZIMEMO_DEBUG=none
	if env := os.Getenv("MUZIMEMO_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				enabledCategories[Category(strings.TrimSpace(cat))] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	logger.Printf("[%s] %s", cat, fmt.Sprintf(format, args...))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

// EnableAll enables all debug categories including verbose ones
func EnableAll() {
	categoryMu.Lock()
	for cat := range enabledCategories {
		enabledCategories[cat] = true
	}
	categoryMu.Unlock()
}
