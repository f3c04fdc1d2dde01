// Package config loads and persists the folia configuration.
//
// Configuration is a TOML file. Everything the build and query pipelines
// need is carried in the Config struct and passed in explicitly; there is
// no package-level mutable state.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

// Default metadata label patterns per category. Institutions do not share a
// controlled vocabulary, so labels are matched by regex: date and material
// use loose substring patterns, language and author are anchored to the
// start of the label to avoid matching descriptive text that merely
// contains the word.
var defaultPatterns = []CategoryPattern{
	{Category: "date", Pattern: `date`},
	{Category: "material", Pattern: `material`},
	{Category: "language", Pattern: `^(text )?language`},
	{Category: "author", Pattern: `^(author|creator)`},
}

const (
	defaultThumbnailSuffixPattern = `/full/.*/0/.*jpg`
	defaultThumbnailSuffix        = `/full/!200,200/0/default.jpg`
)

// Config holds the full folia configuration.
type Config struct {
	// FilesDir is the directory tree of manifest JSON files to index.
	FilesDir string `toml:"files_dir"`

	// IndexDir holds the SQLite index and its sidecar files.
	IndexDir string `toml:"index_dir"`

	// Repositories maps a substring of a manifest id to a repository
	// display name. Order is significant: the first matching entry wins.
	Repositories []RepositoryRule `toml:"repositories"`

	// BaseURLs is the allowlist of image/manifest providers. The core
	// pipeline does not consume it; it is passed through to the web layer.
	BaseURLs []string `toml:"base_urls"`

	Thumbnail ThumbnailConfig `toml:"thumbnail"`

	// Patterns is the ordered (category, pattern) list used to classify
	// free-text metadata labels. Defaults cover date, material, language
	// and author.
	Patterns []CategoryPattern `toml:"patterns"`

	Cache CacheConfig `toml:"cache"`
}

// RepositoryRule identifies a repository by a substring of the manifest id,
// e.g. key "cudl" for Cambridge University Library.
type RepositoryRule struct {
	Key  string `toml:"key"`
	Name string `toml:"name"`
}

// ThumbnailConfig controls how image URLs are rewritten to thumbnail size.
type ThumbnailConfig struct {
	// SuffixPattern is the regex matching a full-size IIIF image suffix.
	SuffixPattern string `toml:"suffix_pattern"`
	// Suffix replaces a matched pattern, or is appended when none matches.
	Suffix string `toml:"suffix"`
}

// CategoryPattern binds a logical metadata category to a label regex.
type CategoryPattern struct {
	Category string `toml:"category"`
	Pattern  string `toml:"pattern"`
}

// CacheConfig holds TTLs for the query result cache.
type CacheConfig struct {
	// ResultsTTL bounds cached totals/sidebars for filtered result pages.
	ResultsTTL Duration `toml:"results_ttl"`
	// CatalogTTL bounds the cached full-catalog listing.
	CatalogTTL Duration `toml:"catalog_ttl"`
}

// Duration wraps time.Duration for TOML text (un)marshaling.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// GetDefaultConfig returns a configuration populated with defaults.
func GetDefaultConfig() (*Config, error) {
	dataDir, err := GetDefaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("getting default data directory: %w", err)
	}
	cfg := &Config{
		FilesDir: filepath.Join(dataDir, "files"),
		IndexDir: filepath.Join(dataDir, "index"),
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadConfig reads the configuration from configPath, falling back to
// defaults when the file does not exist or omits optional sections.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return GetDefaultConfig()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.FilesDir == "" || config.IndexDir == "" {
		dataDir, err := GetDefaultDataDir()
		if err != nil {
			return nil, fmt.Errorf("getting default data directory: %w", err)
		}
		if config.FilesDir == "" {
			config.FilesDir = filepath.Join(dataDir, "files")
		}
		if config.IndexDir == "" {
			config.IndexDir = filepath.Join(dataDir, "index")
		}
	}
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Thumbnail.SuffixPattern == "" {
		c.Thumbnail.SuffixPattern = defaultThumbnailSuffixPattern
	}
	if c.Thumbnail.Suffix == "" {
		c.Thumbnail.Suffix = defaultThumbnailSuffix
	}
	if len(c.Patterns) == 0 {
		c.Patterns = append(c.Patterns, defaultPatterns...)
	}
	if c.Cache.ResultsTTL.Duration == 0 {
		c.Cache.ResultsTTL = Duration{5 * time.Minute}
	}
	if c.Cache.CatalogTTL.Duration == 0 {
		c.Cache.CatalogTTL = Duration{24 * time.Hour}
	}
}

// PatternFor returns the label regex configured for a category, or "" when
// the category is unknown.
func (c *Config) PatternFor(category string) string {
	for _, p := range c.Patterns {
		if p.Category == category {
			return p.Pattern
		}
	}
	return ""
}

// SaveConfig writes the configuration as TOML.
func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration, with the
// data directories pointed at the user's data dir.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	filesDir := c.FilesDir
	indexDir := c.IndexDir
	if filesDir == "" || indexDir == "" {
		dataDir, err := GetDefaultDataDir()
		if err != nil {
			return "", fmt.Errorf("getting default data directory: %w", err)
		}
		if filesDir == "" {
			filesDir = filepath.Join(dataDir, "files")
		}
		if indexDir == "" {
			indexDir = filepath.Join(dataDir, "index")
		}
	}

	template := strings.Replace(configTemplate, "/home/user/.local/share/folia/files", filesDir, 1)
	template = strings.Replace(template, "/home/user/.local/share/folia/index", indexDir, 1)
	return template, nil
}

// GetDefaultDataDir returns the default directory for manifests and index.
func GetDefaultDataDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	foliaDir := filepath.Join(dataDir, "folia")

	if err := os.MkdirAll(foliaDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory %s: %w", foliaDir, err)
	}

	return foliaDir, nil
}

// GetConfigDir returns the configuration directory for folia.
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	foliaConfigDir := filepath.Join(configDir, "folia")

	if err := os.MkdirAll(foliaConfigDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", foliaConfigDir, err)
	}

	return foliaConfigDir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
