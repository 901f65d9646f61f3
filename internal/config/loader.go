package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName  = "config.yaml"
	ConfigDirName   = ".shopassist"
	GlobalConfigDir = ".config/shopassist"
)

// Loader handles configuration loading and discovery
type Loader struct {
	startDir string
}

// NewLoader creates a new config loader starting from the given directory
func NewLoader(startDir string) *Loader {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			startDir = "."
		}
	}

	return &Loader{
		startDir: startDir,
	}
}

// Load loads the configuration with environment variable overrides.
// Without a config file the defaults are used, rooted at the start directory.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	configPath, err := l.findConfigFile()
	if err == nil {
		config, err = l.loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if !filepath.IsAbs(config.Storage.Path) {
		root := l.startDir
		if projectRoot, err := l.GetProjectRoot(); err == nil {
			root = projectRoot
		}
		config.Storage.Path = filepath.Join(root, config.Storage.Path)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// findConfigFile searches upward from the start directory for a config file
func (l *Loader) findConfigFile() (string, error) {
	dir := l.startDir

	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(homeDir, GlobalConfigDir, ConfigFileName)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched upward from %s)", l.startDir)
}

// loadFromFile loads configuration from a YAML file over the defaults
func (l *Loader) loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	if v := os.Getenv("SHOPASSIST_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHOPASSIST_DEBUG: %w", err)
		}
		config.Debug = debug
	}
	if v := os.Getenv("SHOPASSIST_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SHOPASSIST_HEADLESS: %w", err)
		}
		config.Browser.Headless = headless
	}
	if v := os.Getenv("SHOPASSIST_CHROME_PATH"); v != "" {
		config.Browser.ChromePath = v
	}

	if v := os.Getenv("SHOPASSIST_DB_DRIVER"); v != "" {
		config.Storage.Driver = v
	}
	if v := os.Getenv("SHOPASSIST_DB_PATH"); v != "" {
		config.Storage.Path = v
	}

	if v := os.Getenv("SHOPASSIST_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SHOPASSIST_PORT: %w", err)
		}
		config.Server.Port = port
	}
	if v := os.Getenv("SHOPASSIST_ASSETS_DIR"); v != "" {
		config.Assets.Dir = v
	}

	return nil
}

// Save saves the configuration to the specified path
func (l *Loader) Save(config *Config, configPath string) error {
	config.Meta.UpdatedAt = time.Now()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path where a config file should be created
func (l *Loader) GetConfigPath() string {
	return filepath.Join(l.startDir, ConfigDirName, ConfigFileName)
}

// IsInitialized checks if a config file exists in the project hierarchy
func (l *Loader) IsInitialized() bool {
	_, err := l.findConfigFile()
	return err == nil
}

// GetProjectRoot returns the root directory containing the .shopassist folder
func (l *Loader) GetProjectRoot() (string, error) {
	configPath, err := l.findConfigFile()
	if err != nil {
		return "", err
	}

	return filepath.Dir(filepath.Dir(configPath)), nil
}
