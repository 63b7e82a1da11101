// Package config provides configuration loading and structs for the prtrack server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Parse   ParseConfig   `yaml:"parse"`
	Search  SearchConfig  `yaml:"search"`
	Watch   WatchConfig   `yaml:"watch"`
	Report  ReportConfig  `yaml:"report"`
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	// Submitter is recorded as the last modifier of requisitions imported from an inbox.
	Submitter string `yaml:"submitter"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
	// MaxUploadMB bounds the size of one multipart upload request.
	MaxUploadMB int `yaml:"max_upload_mb" validate:"min=1"`
}

// StorageConfig holds paths for the database and the item keyword index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path" validate:"required"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// ParseConfig holds spreadsheet parsing settings.
type ParseConfig struct {
	MetadataWindow   int      `yaml:"metadata_window" validate:"min=1"`
	DateLayouts      []string `yaml:"date_layouts"`
	LocaleDateLayout string   `yaml:"locale_date_layout" validate:"required"`
	XLSCharset       string   `yaml:"xls_charset"`
}

// SearchConfig holds item search settings.
type SearchConfig struct {
	DefaultLimit int     `yaml:"default_limit" validate:"min=1"`
	MaxLimit     int     `yaml:"max_limit" validate:"gtefield=DefaultLimit"`
	NameBoost    float64 `yaml:"name_boost" validate:"gte=0"`
}

// ReportConfig holds status report settings.
type ReportConfig struct {
	DefaultDays int `yaml:"default_days" validate:"min=1"`
}

var validate = validator.New()

// Validate checks value ranges after defaults have been applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads and parses the config file at path, expands paths, applies defaults and
// validates the result. Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.KeywordIndexPath != "" {
		cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
