package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "BOOKSCRAPE"

// Env mirrors the Config fields that may be set from the environment,
// e.g. BOOKSCRAPE_BASE_URL or BOOKSCRAPE_NO_IMAGES=true. Pointer fields
// distinguish "unset" from an explicit false.
type Env struct {
	BaseURL       string        `envconfig:"BASE_URL"`
	Output        string        `envconfig:"OUTPUT"`
	Timeout       time.Duration `envconfig:"TIMEOUT"`
	Concurrency   int           `envconfig:"CONCURRENCY"`
	UserAgent     string        `envconfig:"USER_AGENT"`
	Cookie        string        `envconfig:"COOKIE"`
	ProxyAddress  string        `envconfig:"PROXY"`
	ProxyUsername string        `envconfig:"PROXY_USERNAME"`
	ProxyPassword string        `envconfig:"PROXY_PASSWORD"`
	DBDir         string        `envconfig:"DB_DIR"`
	NoDB          *bool         `envconfig:"NO_DB"`
	NoImages      *bool         `envconfig:"NO_IMAGES"`
	IgnoreRobots  *bool         `envconfig:"IGNORE_ROBOTS"`
	Verbose       *bool         `envconfig:"VERBOSE"`
}

// LoadEnv loads dotenvPath into the process environment when the file
// exists, without overriding variables that are already set, and then
// applies every BOOKSCRAPE_* variable onto cfg.
func LoadEnv(cfg *Config, dotenvPath string) error {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", dotenvPath, err)
		}
	}

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	env.Apply(cfg)
	return nil
}

// Apply copies every value set in e onto cfg.
func (e *Env) Apply(cfg *Config) {
	if e.BaseURL != "" {
		cfg.BaseURL = e.BaseURL
	}
	if e.Output != "" {
		cfg.OutputDir = e.Output
	}
	if e.Timeout != 0 {
		cfg.Timeout = e.Timeout
	}
	if e.Concurrency != 0 {
		cfg.Concurrency = e.Concurrency
	}
	if e.UserAgent != "" {
		cfg.UserAgent = e.UserAgent
	}
	if e.Cookie != "" {
		cfg.Cookie = e.Cookie
	}
	if e.ProxyAddress != "" {
		cfg.ProxyAddress = e.ProxyAddress
	}
	if e.ProxyUsername != "" {
		cfg.ProxyUsername = e.ProxyUsername
	}
	if e.ProxyPassword != "" {
		cfg.ProxyPassword = e.ProxyPassword
	}
	if e.DBDir != "" {
		cfg.DBDir = e.DBDir
	}
	if e.NoDB != nil {
		cfg.SaveToDB = !*e.NoDB
	}
	if e.NoImages != nil {
		cfg.DownloadImages = !*e.NoImages
	}
	if e.IgnoreRobots != nil {
		cfg.RespectRobots = !*e.IgnoreRobots
	}
	if e.Verbose != nil {
		cfg.Verbose = *e.Verbose
	}
}
