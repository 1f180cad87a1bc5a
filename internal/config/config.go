package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ngscope/internal/logging"
	"ngscope/pkg/fileops"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "ngscope" // application name used for config directory

// ConfigPathEnv overrides the config file location when set.
const ConfigPathEnv = "NGSCOPE_CONFIG_PATH"

const (
	// DefaultSearchLimit is also the hard cap; search_limit can only lower it.
	DefaultSearchLimit = 50
	DefaultMaxFileSize = 5 * 1024 * 1024
)

// DefaultAllowedExtensions is the suffix allow-list used when the config omits one.
var DefaultAllowedExtensions = []string{".ts", ".html", ".scss", ".css", ".json", ".md", ".js"}

// Categories maps component categories to the directory prefix (relative to
// the project root) that places a component in that category.
type Categories struct {
	UI      string `yaml:"ui"`
	Layout  string `yaml:"layout"`
	Feature string `yaml:"feature"`
}

// Config holds user configuration for ngscope.
type Config struct {
	// ProjectRoot is the only directory tree the tools may read.
	ProjectRoot       string     `yaml:"project_root"`
	AllowedExtensions []string   `yaml:"allowed_extensions"`
	SearchLimit       int        `yaml:"search_limit"`
	MaxFileSize       int64      `yaml:"max_file_size"`
	Categories        Categories `yaml:"categories"`
	Version           string     `yaml:"version"`   // Track config version
	InitTime          int64      `yaml:"init_time"` // Unix timestamp of first save
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(ConfigPathEnv)); override != "" {
		return fileops.ExpandPath(override), nil
	}

	configPath := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// Load loads the config from the standard location. When no config file
// exists the defaults are returned, rooted at the current directory.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	if !exists {
		logging.Debug("No config file found, using defaults", "path", configPath)
		cfg := DefaultConfig()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path. Missing fields are filled with defaults.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.ProjectRoot = fileops.ExpandPath(cfg.ProjectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// FindConfigFile returns the path to the config file, and whether it exists.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	return primary, false
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}

	return Config{
		ProjectRoot:       root,
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
		SearchLimit:       DefaultSearchLimit,
		MaxFileSize:       DefaultMaxFileSize,
		Categories:        DefaultCategories(),
		Version:           "1.0",
		InitTime:          0, // Will be set during first save
	}
}

// DefaultCategories returns the Angular workspace layout ngscope assumes.
func DefaultCategories() Categories {
	return Categories{
		UI:      "src/app/shared/ui/",
		Layout:  "src/app/layout/",
		Feature: "src/app/features/",
	}
}

func (c *Config) applyDefaults() {
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	}
	if c.SearchLimit <= 0 || c.SearchLimit > DefaultSearchLimit {
		c.SearchLimit = DefaultSearchLimit
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

// Validate checks the fields that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProjectRoot) == "" {
		return fmt.Errorf("project_root cannot be empty")
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}
	return nil
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, _ := FindConfigFile()
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path
func (c *Config) SaveTo(path string) error {
	// Set init time if this is the first save
	if c.InitTime == 0 {
		c.InitTime = time.Now().Unix()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// CreateNewConfig initializes a configuration rooted at projectRoot and saves it.
func CreateNewConfig(projectRoot string) (*Config, error) {
	cfg, err := NewProjectConfig(projectRoot)
	if err != nil {
		return nil, err
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	logging.Info("Configuration created successfully", "project_root", cfg.ProjectRoot)
	return cfg, nil
}

// NewProjectConfig returns the defaults rooted at projectRoot without saving.
// The root must be an existing directory outside the reserved system paths.
func NewProjectConfig(projectRoot string) (*Config, error) {
	cfg := DefaultConfig()

	abs, err := filepath.Abs(fileops.ExpandPath(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", abs)
	}
	if fileops.IsReservedDirectory(abs) {
		return nil, fmt.Errorf("cannot use system or reserved directory as project root: %s", abs)
	}
	cfg.ProjectRoot = abs
	return &cfg, nil
}
