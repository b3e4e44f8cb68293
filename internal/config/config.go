package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var extPattern = regexp.MustCompile(`^\.[a-z0-9]+$`)

// Storage driver names
const (
	DriverLocal  = "local"
	DriverMemory = "memory"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Storage  StorageConfig  `json:"storage"`
	Library  LibraryConfig  `json:"library"`
	Search   SearchConfig   `json:"search"`
	Behavior BehaviorConfig `json:"behavior"`
}

// StorageConfig selects where recordings live
type StorageConfig struct {
	BaseDir string `json:"baseDir"` // app-private directory holding recordings/
	Driver  string `json:"driver"`  // "local" | "memory"
}

// LibraryConfig holds listing settings
type LibraryConfig struct {
	Extensions  []string `json:"extensions"`  // audio allow-list, with leading dot
	DefaultSort string   `json:"defaultSort"` // used until a sort preference is stored
}

// SearchConfig holds search-related settings
type SearchConfig struct {
	IncludeAudio   bool `json:"includeAudio"`
	IncludeFolders bool `json:"includeFolders"`
	CurrentDirOnly bool `json:"currentDirOnly"`
	HistoryLimit   int  `json:"historyLimit"`
}

// BehaviorConfig holds behavior settings
type BehaviorConfig struct {
	WatchDirectories bool `json:"watchDirectories"`
	WatchDebounceMs  int  `json:"watchDebounceMs"`
	ExportTimeoutMs  int  `json:"exportTimeoutMs"`
	MetadataWorkers  int  `json:"metadataWorkers"`
}

// WatchDebounce returns the debounce window as a duration.
func (b BehaviorConfig) WatchDebounce() time.Duration {
	return time.Duration(b.WatchDebounceMs) * time.Millisecond
}

// ExportTimeout returns the share timeout as a duration.
func (b BehaviorConfig) ExportTimeout() time.Duration {
	return time.Duration(b.ExportTimeoutMs) * time.Millisecond
}

// Validate checks value ranges. A config that fails is replaced by defaults
// on load.
func (c Config) Validate() error {
	return validation.Errors{
		"storage.driver": validation.Validate(c.Storage.Driver,
			validation.Required, validation.In(DriverLocal, DriverMemory)),
		"library.extensions": validation.Validate(c.Library.Extensions,
			validation.Required, validation.Each(validation.Match(extPattern))),
		"search.historyLimit": validation.Validate(c.Search.HistoryLimit,
			validation.Min(0), validation.Max(500)),
		"behavior.watchDebounceMs": validation.Validate(c.Behavior.WatchDebounceMs,
			validation.Min(0)),
		"behavior.exportTimeoutMs": validation.Validate(c.Behavior.ExportTimeoutMs,
			validation.Min(0)),
		"behavior.metadataWorkers": validation.Validate(c.Behavior.MetadataWorkers,
			validation.Min(0), validation.Max(64)),
	}.Filter()
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			BaseDir: DefaultBaseDir(),
			Driver:  DriverLocal,
		},
		Library: LibraryConfig{
			Extensions:  []string{".m4a", ".mp3", ".wav"},
			DefaultSort: "date-newest",
		},
		Search: SearchConfig{
			IncludeAudio:   true,
			IncludeFolders: true,
			CurrentDirOnly: false,
			HistoryLimit:   20,
		},
		Behavior: BehaviorConfig{
			WatchDirectories: true,
			WatchDebounceMs:  300,
			ExportTimeoutMs:  10000,
			MetadataWorkers:  4,
		},
	}
}

// ConfigPath returns the config file path: ~/.config/muzimemo/config.json
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "muzimemo", "config.json")
}

// DefaultBaseDir returns ~/.local/share/muzimemo.
func DefaultBaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "muzimemo")
}

// Load reads the configuration from ConfigPath.
func (m *Manager) Load() error {
	return m.LoadFrom(ConfigPath())
}

// LoadFrom reads the configuration from path.
// If the file doesn't exist, creates it with defaults
// If parsing or validation fails, stores the error and uses defaults
func (m *Manager) LoadFrom(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.path = path
	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Printf("Config: failed to create directory %s: %v", configDir, err)
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Printf("Config: creating default config at %s", m.path)
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Printf("Config: failed to save default config: %v", saveErr)
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Printf("Config: failed to read %s: %v", m.path, err)
		return err
	}

	// Missing keys keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("Config: JSON parse error: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Config: invalid values: %v", err)
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	log.Printf("Config: loaded from %s", m.path)
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	if m.path == "" {
		return fmt.Errorf("config path not set")
	}
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	cfg := *m.config
	cfg.Library.Extensions = append([]string(nil), m.config.Library.Extensions...)
	return cfg
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetBaseDir updates the storage base directory
func (m *Manager) SetBaseDir(dir string) {
	m.mu.Lock()
	m.config.Storage.BaseDir = dir
	m.mu.Unlock()
}

// ApplyEnv overrides settings from MUZIMEMO_* environment variables. Values
// that fail to parse are ignored.
func (m *Manager) ApplyEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.config

	c.Storage.BaseDir = getEnv("MUZIMEMO_BASE_DIR", c.Storage.BaseDir)
	c.Storage.Driver = getEnv("MUZIMEMO_DRIVER", c.Storage.Driver)
	c.Library.DefaultSort = getEnv("MUZIMEMO_DEFAULT_SORT", c.Library.DefaultSort)
	if exts := getEnv("MUZIMEMO_EXTENSIONS", ""); exts != "" {
		c.Library.Extensions = splitList(exts)
	}
	c.Search.HistoryLimit = getEnvInt("MUZIMEMO_HISTORY_LIMIT", c.Search.HistoryLimit)
	c.Behavior.WatchDirectories = getEnvBool("MUZIMEMO_WATCH", c.Behavior.WatchDirectories)
	c.Behavior.ExportTimeoutMs = getEnvInt("MUZIMEMO_EXPORT_TIMEOUT_MS", c.Behavior.ExportTimeoutMs)
	c.Behavior.MetadataWorkers = getEnvInt("MUZIMEMO_METADATA_WORKERS", c.Behavior.MetadataWorkers)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
