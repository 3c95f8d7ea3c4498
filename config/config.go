package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Settings is the on-disk application configuration.
type Settings struct {
	TMDB      TMDBSettings      `json:"tmdb"`
	Translate TranslateSettings `json:"translate"`
	Cache     CacheSettings     `json:"cache"`
	Database  DatabaseSettings  `json:"database"`
	Server    ServerSettings    `json:"server"`
	Logging   LoggingSettings   `json:"logging"`
}

// TMDBSettings holds metadata provider credentials. Either the v3 API key or
// the v4 read access token is enough.
type TMDBSettings struct {
	APIKey          string `json:"apiKey"`
	ReadAccessToken string `json:"readAccessToken"`
}

// TranslateSettings holds the translation provider configuration. A blank
// APIKey disables translation at startup.
type TranslateSettings struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

type CacheSettings struct {
	Dir      string `json:"dir"`
	TTLHours int    `json:"ttlHours"`
}

type DatabaseSettings struct {
	Path string `json:"path"`
}

type ServerSettings struct {
	ListenAddr string `json:"listenAddr"`
}

type LoggingSettings struct {
	Path string `json:"path"`
}

// DefaultSettings returns the settings used when no config file exists yet.
func DefaultSettings() Settings {
	return Settings{
		Translate: TranslateSettings{BaseURL: "https://libretranslate.com"},
		Cache:     CacheSettings{Dir: "data/cache", TTLHours: 24},
		Database:  DatabaseSettings{Path: "data/iptvdesk.db"},
		Server:    ServerSettings{ListenAddr: ":8585"},
		Logging:   LoggingSettings{Path: "data/logs/iptvdesk.log"},
	}
}

// CacheTTL returns the cache TTL as a duration, falling back to 24 hours for
// missing or nonsensical values.
func (s Settings) CacheTTL() time.Duration {
	if s.Cache.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.Cache.TTLHours) * time.Hour
}

// HasTMDBCredentials reports whether the metadata provider can be used.
func (s Settings) HasTMDBCredentials() bool {
	return s.TMDB.APIKey != "" || s.TMDB.ReadAccessToken != ""
}

// Validate reports problems that keep the metadata pipeline from running.
// A missing translation key is deliberately not an error; translation is an
// optional feature that degrades to the original text.
func (s Settings) Validate() error {
	if !s.HasTMDBCredentials() {
		return errors.New("tmdb credentials are not configured")
	}
	if s.Server.ListenAddr == "" {
		return errors.New("server listen address is not configured")
	}
	return nil
}

// Manager loads and saves settings from a JSON file. Safe for concurrent use.
type Manager struct {
	mu   sync.RWMutex
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Load reads settings from disk. A missing file yields the defaults so a
// fresh install starts without manual setup.
func (m *Manager) Load() (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read config: %w", err)
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}
	return s, nil
}

// Save writes settings to disk through a temp file and rename.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}
