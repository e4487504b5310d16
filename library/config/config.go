package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"library-portal/library/logger"
)

type Config struct {
	API     APIConfig     `yaml:"api" toml:"api"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"base_url" toml:"base_url" env:"LIBRARY_API_URL" env-default:"http://localhost:8080/api" env-description:"Backend REST base URL"`
	AssetOrigin string        `yaml:"asset_origin" toml:"asset_origin" env:"LIBRARY_ASSET_ORIGIN" env-default:"http://localhost:8080" env-description:"Origin prefixed to cover image paths"`
	Timeout     time.Duration `yaml:"timeout" toml:"timeout" env:"LIBRARY_HTTP_TIMEOUT" env-default:"0s" env-description:"HTTP client timeout, 0 disables it"`
}

type StorageConfig struct {
	Dir string `yaml:"dir" toml:"dir" env:"LIBRARY_STATE_DIR" env-description:"Directory holding the session file and its key"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level" env:"LIBRARY_LOG_LEVEL" env-default:"warn" env-description:"Log level (debug, info, warn, error)"`
}

const (
	sessionFile = "session.db"
	keyFile     = "session.key"
)

// Load reads configuration. A .env file in the working directory is applied
// first, then the optional config file at path (YAML or TOML), then the
// environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		help, _ := cleanenv.GetDescription(cfg, nil)
		logger.Log.Debug(help)
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.Storage.Dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.Storage.Dir = filepath.Join(base, "library-portal")
	}
	return cfg, nil
}

// SessionPath is the SQLite file holding the persisted session.
func (c *StorageConfig) SessionPath() string { return filepath.Join(c.Dir, sessionFile) }

// KeyPath is the file holding the key the token is sealed with.
func (c *StorageConfig) KeyPath() string { return filepath.Join(c.Dir, keyFile) }

// Usage describes every environment variable the client reads.
func Usage() string {
	help, _ := cleanenv.GetDescription(&Config{}, nil)
	return help
}
