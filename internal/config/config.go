package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvistaConfig configures the API client
type EnvistaConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Token      string        `yaml:"token"`
	Language   string        `yaml:"language"`
	AuthScheme string        `yaml:"auth_scheme"`
	Timeout    time.Duration `yaml:"timeout"`
}

// StationTarget is a station the collector polls, optionally a single channel
type StationTarget struct {
	ID        int  `yaml:"id"`
	ChannelID *int `yaml:"channel_id"`
}

type CollectorConfig struct {
	Stations []StationTarget `yaml:"stations"`
	Interval time.Duration   `yaml:"interval"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

// Config - file values, then environment overrides
type Config struct {
	Envista   EnvistaConfig   `yaml:"envista"`
	Collector CollectorConfig `yaml:"collector"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns a config with every optional value filled in
func Default() *Config {
	return &Config{
		Envista: EnvistaConfig{
			BaseURL:    "https://api.ims.gov.il/v1/envista",
			AuthScheme: "Bearer",
			Timeout:    30 * time.Second,
		},
		Collector: CollectorConfig{
			Interval: 10 * time.Minute,
		},
		Redis:  defaultRedisConfig(),
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Env: "dev"},
	}
}

// Load reads configPath over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Envista.Token = getEnv("IMS_TOKEN", c.Envista.Token)
	c.Envista.BaseURL = getEnv("IMS_BASE_URL", c.Envista.BaseURL)
	c.Envista.Language = getEnv("IMS_LANGUAGE", c.Envista.Language)
	c.Envista.AuthScheme = getEnv("IMS_AUTH_SCHEME", c.Envista.AuthScheme)
	c.Redis = redisFromEnv(c.Redis)
	c.Server.Addr = getEnv("HTTP_ADDR", c.Server.Addr)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Env = getEnv("APP_ENV", c.Log.Env)
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Envista.BaseURL) == "" {
		return fmt.Errorf("envista.base_url cannot be empty")
	}
	switch strings.ToLower(strings.TrimSpace(c.Envista.Language)) {
	case "", "he", "en":
	default:
		return fmt.Errorf("invalid envista.language %q (allowed: he, en)", c.Envista.Language)
	}
	if c.Envista.Timeout < 0 {
		return fmt.Errorf("envista.timeout cannot be negative")
	}
	for i, s := range c.Collector.Stations {
		if s.ID <= 0 {
			return fmt.Errorf("collector.stations[%d].id must be positive, got %d", i, s.ID)
		}
		if s.ChannelID != nil && *s.ChannelID <= 0 {
			return fmt.Errorf("collector.stations[%d].channel_id must be positive, got %d", i, *s.ChannelID)
		}
	}
	if c.Collector.Interval < 0 {
		return fmt.Errorf("collector.interval cannot be negative")
	}
	switch c.Log.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("invalid log.env %q (allowed: dev, prod)", c.Log.Env)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", l.Level)
	}
}
