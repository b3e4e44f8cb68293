// Package store persists user preferences in SQLite: one string value per
// key, JSON-encoded where the value is structured.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/Tycholiz/MuziMemo-sub000/internal/debug"
	"github.com/Tycholiz/MuziMemo-sub000/internal/domain"
)

// Preference keys
const (
	KeySortOption    = "sort_option"
	KeySearchHistory = "search_history"
)

// MinHistoryQueryLength is the shortest query worth remembering.
const MinHistoryQueryLength = 2

// Preferences is the key-value store the session persists to.
type Preferences interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

type DB struct {
	conn *sql.DB
}

// InMemory is the path that opens a private, non-persistent database.
const InMemory = ":memory:"

// Open initializes the database connection and schema
func Open(dbPath string) (*DB, error) {
	if dbPath != InMemory {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection: SQLite has a single writer, and an in-memory
	// database exists per connection
	db.SetMaxOpenConns(1)

	// Performance Tuning
	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, err
	}

	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(settingsQuery); err != nil {
		db.Close()
		return nil, err
	}

	debug.Log(debug.STORE, "Open: %s", dbPath)
	return &DB{conn: db}, nil
}

func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Get returns the value stored under key.
func (d *DB) Get(key string) (string, bool, error) {
	var value string
	err := d.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (d *DB) Set(key, value string) error {
	_, err := d.conn.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		log.Printf("Store Error: %v", err)
	}
	return err
}

// LoadSortOption returns the persisted sort option, or def when none is
// stored or the stored value is unreadable.
func LoadSortOption(p Preferences, def domain.SortOption) domain.SortOption {
	raw, ok, err := p.Get(KeySortOption)
	if err != nil || !ok {
		return def
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return def
	}
	opt, err := domain.ParseSortOption(s)
	if err != nil {
		return def
	}
	return opt
}

// SaveSortOption persists opt.
func SaveSortOption(p Preferences, opt domain.SortOption) error {
	raw, err := json.Marshal(opt.String())
	if err != nil {
		return err
	}
	return p.Set(KeySortOption, string(raw))
}

// SearchHistory returns remembered queries, most recent first.
func SearchHistory(p Preferences) ([]string, error) {
	raw, ok, err := p.Get(KeySearchHistory)
	if err != nil || !ok {
		return nil, err
	}
	var history []string
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		debug.Log(debug.STORE, "SearchHistory: discarding unreadable value: %v", err)
		return nil, nil
	}
	return history, nil
}

// AddSearchHistory records query at the front of the history, removing an
// earlier identical entry and keeping at most limit entries. Queries shorter
// than MinHistoryQueryLength are ignored.
func AddSearchHistory(p Preferences, query string, limit int) error {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinHistoryQueryLength || limit <= 0 {
		return nil
	}
	history, err := SearchHistory(p)
	if err != nil {
		return err
	}

	next := make([]string, 0, len(history)+1)
	next = append(next, query)
	for _, h := range history {
		if !strings.EqualFold(h, query) {
			next = append(next, h)
		}
	}
	if len(next) > limit {
		next = next[:limit]
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	return p.Set(KeySearchHistory, string(raw))
}

// ClearSearchHistory forgets every remembered query.
func ClearSearchHistory(p Preferences) error {
	return p.Set(KeySearchHistory, "[]")
}
