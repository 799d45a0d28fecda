// Package config loads memonotes configuration from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kimhsiao/memonotes/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. MEMONOTES_LOG__LEVEL=debug.
const EnvPrefix = "MEMONOTES_"

// AppConfig is the full configuration tree.
type AppConfig struct {
	DataDir string        `koanf:"data_dir"`
	DBFile  string        `koanf:"db_file"`
	Log     LogConfig     `koanf:"log"`
	Storage StorageConfig `koanf:"storage"`
	Live    LiveConfig    `koanf:"live"`
	Session SessionConfig `koanf:"session"`
	Server  ServerConfig  `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type StorageConfig struct {
	MaxOpenConns int           `koanf:"max_open_conns"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"`
}

type LiveConfig struct {
	// MaxConcurrentQueries bounds how many live queries read from storage at once.
	MaxConcurrentQueries int `koanf:"max_concurrent_queries"`
}

type SessionConfig struct {
	MaxWorkers int `koanf:"max_workers"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	c := &AppConfig{}
	setDefaults(c)
	return c
}

// Load reads configPath (optional; empty or missing is fine), then .env, then
// MEMONOTES_* environment variables, later sources overriding earlier ones.
func Load(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn("could not load .env file", map[string]interface{}{"error": err.Error()})
	}

	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	conf := &AppConfig{}
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	setDefaults(conf)
	return conf, nil
}

// envKey maps MEMONOTES_STORAGE__BUSY_TIMEOUT to storage.busy_timeout.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func setDefaults(c *AppConfig) {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DBFile == "" {
		c.DBFile = "notes.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Storage.MaxOpenConns <= 0 {
		c.Storage.MaxOpenConns = 4
	}
	if c.Storage.BusyTimeout <= 0 {
		c.Storage.BusyTimeout = 5 * time.Second
	}
	if c.Live.MaxConcurrentQueries <= 0 {
		c.Live.MaxConcurrentQueries = 2
	}
	if c.Session.MaxWorkers <= 0 {
		c.Session.MaxWorkers = 4
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
}
