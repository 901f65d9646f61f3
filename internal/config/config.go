package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config represents the complete shopassist configuration
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Assets  AssetsConfig  `yaml:"assets"`
	Fill    FillConfig    `yaml:"fill"`
	Debug   bool          `yaml:"debug"`
	Meta    MetaConfig    `yaml:"meta"`
}

// BrowserConfig controls the Chrome instance used for page fills
type BrowserConfig struct {
	Headless     bool          `yaml:"headless"`
	ChromePath   string        `yaml:"chrome_path,omitempty"` // empty means auto-detect
	WindowWidth  int           `yaml:"window_width"`
	WindowHeight int           `yaml:"window_height"`
	Timeout      time.Duration `yaml:"timeout"` // per CDP call
}

// StorageConfig selects the local key-value database
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
	Path   string `yaml:"path"`
}

// ServerConfig holds the asset server listen settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
}

// AssetsConfig configures the cache worker
type AssetsConfig struct {
	Dir                  string   `yaml:"dir,omitempty"` // empty serves the embedded assets
	CacheVersion         string   `yaml:"cache_version"`
	Files                []string `yaml:"files"`
	Shell                string   `yaml:"shell"`
	SkipWaitingOnInstall bool     `yaml:"skip_waiting_on_install"`
	Watch                bool     `yaml:"watch"`
	WatchDebounceMS      int      `yaml:"watch_debounce_ms"`
}

// FillConfig tunes page detection
type FillConfig struct {
	DetectAttempts int           `yaml:"detect_attempts"` // used when smart navigation is on
	DetectInterval time.Duration `yaml:"detect_interval"`
	BlurDelay      time.Duration `yaml:"blur_delay"`
}

// MetaConfig holds metadata about the configuration
type MetaConfig struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// DefaultConfig returns a new config with sensible defaults
func DefaultConfig() *Config {
	now := time.Now()
	return &Config{
		Browser: BrowserConfig{
			Headless:     false,
			WindowWidth:  1280,
			WindowHeight: 900,
			Timeout:      10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "sqlite3",
			Path:   filepath.Join(ConfigDirName, "shopassist.db"),
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Assets: AssetsConfig{
			CacheVersion: "shop-assistant-v1.0.0",
			Files: []string{
				"/",
				"/index.html",
				"/manifest.json",
				"/checkout.html",
				"/app.js",
			},
			Shell:                "/index.html",
			SkipWaitingOnInstall: true,
			Watch:                true,
			WatchDebounceMS:      500,
		},
		Fill: FillConfig{
			DetectAttempts: 10,
			DetectInterval: 500 * time.Millisecond,
			BlurDelay:      50 * time.Millisecond,
		},
		Meta: MetaConfig{
			Version:   "1.0.0",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return NewValidationError("storage.driver must be sqlite3 or sqlite, got: " + c.Storage.Driver)
	}

	if c.Storage.Path == "" {
		return NewValidationError("storage.path is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewValidationError(fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}

	if c.Assets.CacheVersion == "" {
		return NewValidationError("assets.cache_version is required")
	}

	if c.Assets.Shell == "" {
		return NewValidationError("assets.shell is required")
	}

	if c.Fill.DetectAttempts < 1 {
		return NewValidationError("fill.detect_attempts must be at least 1")
	}

	if c.Browser.Timeout <= 0 {
		return NewValidationError("browser.timeout must be positive")
	}

	return nil
}

// Addr returns the host:port the asset server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
