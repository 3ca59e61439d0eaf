package config

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// current and home directories.
const DefaultConfigFile = ".bookscrape"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the .bookscrape YAML file. Every field is
// optional; unset fields leave the corresponding Config value untouched.
type File struct {
	BaseURL     string            `yaml:"base_url,omitempty"`
	Output      string            `yaml:"output,omitempty"`
	Timeout     time.Duration     `yaml:"timeout,omitempty"`
	Concurrency int               `yaml:"concurrency,omitempty"`
	UserAgent   string            `yaml:"user_agent,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Cookie      string            `yaml:"cookie,omitempty"`
	Proxy       ProxyFile         `yaml:"proxy,omitempty"`
	Images      *bool             `yaml:"images,omitempty"`
	Robots      *bool             `yaml:"robots,omitempty"`
	Database    DatabaseFile      `yaml:"database,omitempty"`
	Categories  []string          `yaml:"categories,omitempty"`
	Exclude     []string          `yaml:"exclude,omitempty"`
}

// ProxyFile is the proxy section of the configuration file.
type ProxyFile struct {
	Address  string `yaml:"address,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DatabaseFile is the database section of the configuration file.
type DatabaseFile struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// LoadConfigFile reads and parses a YAML configuration file.
// A missing file yields ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Apply copies every value set in f onto cfg.
func (f *File) Apply(cfg *Config) {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.Output != "" {
		cfg.OutputDir = f.Output
	}
	if f.Timeout != 0 {
		cfg.Timeout = f.Timeout
	}
	if f.Concurrency != 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(f.Headers))
		}
		maps.Copy(cfg.Headers, f.Headers)
	}
	if f.Cookie != "" {
		cfg.Cookie = f.Cookie
	}
	if f.Proxy.Address != "" {
		cfg.ProxyAddress = f.Proxy.Address
	}
	if f.Proxy.Username != "" {
		cfg.ProxyUsername = f.Proxy.Username
	}
	if f.Proxy.Password != "" {
		cfg.ProxyPassword = f.Proxy.Password
	}
	if f.Images != nil {
		cfg.DownloadImages = *f.Images
	}
	if f.Robots != nil {
		cfg.RespectRobots = *f.Robots
	}
	if f.Database.Enabled != nil {
		cfg.SaveToDB = *f.Database.Enabled
	}
	if f.Database.Dir != "" {
		cfg.DBDir = f.Database.Dir
	}
	if len(f.Categories) > 0 {
		cfg.Categories = f.Categories
	}
	if len(f.Exclude) > 0 {
		cfg.Exclude = f.Exclude
	}
}

// FindConfigFile searches for the configuration file in this order:
//  1. configPath, when given
//  2. .bookscrape in the current directory
//  3. .bookscrape in the home directory
//  4. config.yaml in the XDG config directory
//
// It returns an empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
