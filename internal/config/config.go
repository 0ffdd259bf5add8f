package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config keeps runtime settings of the bot, the HTTP API and the report job.
type Config struct {
	TelegramToken string        `toml:"telegram_token"`
	Timezone      string        `toml:"timezone"`
	ReportTime    string        `toml:"report_time"`
	Store         StoreConfig   `toml:"store"`
	HTTP          HTTPConfig    `toml:"http"`
	Logger        LoggerConfig  `toml:"logger"`
	Context       ContextConfig `toml:"context"`

	// Location is Timezone resolved by Load.
	Location *time.Location `toml:"-"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"`
	DatabaseURL string `toml:"database_url"`
	BoltPath    string `toml:"bolt_path"`
	RedisURL    string `toml:"redis_url"`
}

type HTTPConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
}

type LoggerConfig struct {
	Level    string `toml:"level"`
	Encoding string `toml:"encoding"`
}

type ContextConfig struct {
	RequestTimeout  duration `toml:"request_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
}

// duration decodes "10s" style TOML strings.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// BotEnabled reports whether the Telegram front end should start.
func (c Config) BotEnabled() bool { return c.TelegramToken != "" }

// HTTPEnabled reports whether the JSON API should start.
func (c Config) HTTPEnabled() bool { return c.HTTP.Addr != "" }

// ReportsEnabled reports whether the morning summary job should be scheduled.
func (c Config) ReportsEnabled() bool { return c.BotEnabled() && c.ReportTime != "" }

func defaults() Config {
	return Config{
		Timezone:   "Local",
		ReportTime: "08:00",
		Store: StoreConfig{
			Backend:     BackendSQLite,
			DatabaseURL: "daily_schedule.db",
			BoltPath:    "./data/schedule.db",
			RedisURL:    "redis://localhost:6379/0",
		},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  duration{10 * time.Second},
			WriteTimeout: duration{10 * time.Second},
		},
		Logger: LoggerConfig{
			Level:    "info",
			Encoding: "json",
		},
		Context: ContextConfig{
			RequestTimeout:  duration{5 * time.Second},
			ShutdownTimeout: duration{15 * time.Second},
		},
	}
}

// Load reads configuration from defaults, an optional TOML file named by
// CONFIG_FILE and environment variables (optionally from .env), in that order.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.TelegramToken = getString("TELEGRAM_TOKEN", cfg.TelegramToken)
	cfg.Timezone = getString("TIMEZONE", cfg.Timezone)
	cfg.ReportTime = lookupString("REPORT_TIME", cfg.ReportTime)

	cfg.Store.Backend = strings.ToLower(getString("STORE_BACKEND", cfg.Store.Backend))
	cfg.Store.DatabaseURL = getString("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Store.BoltPath = getString("BOLT_PATH", cfg.Store.BoltPath)
	cfg.Store.RedisURL = getString("REDIS_URL", cfg.Store.RedisURL)

	cfg.HTTP.Addr = lookupString("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ReadTimeout.Duration = getDuration("HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout.Duration)
	cfg.HTTP.WriteTimeout.Duration = getDuration("HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout.Duration)

	cfg.Logger.Level = getString("LOG_LEVEL", cfg.Logger.Level)
	cfg.Logger.Encoding = getString("LOG_ENCODING", cfg.Logger.Encoding)

	cfg.Context.RequestTimeout.Duration = getDuration("REQUEST_TIMEOUT", cfg.Context.RequestTimeout.Duration)
	cfg.Context.ShutdownTimeout.Duration = getDuration("SHUTDOWN_TIMEOUT", cfg.Context.ShutdownTimeout.Duration)
}

func (c *Config) validate() error {
	if !c.BotEnabled() && !c.HTTPEnabled() {
		return errors.New("nothing to run: set TELEGRAM_TOKEN or HTTP_ADDR")
	}

	switch c.Store.Backend {
	case BackendSQLite, BackendBolt, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// lookupString lets an explicitly empty variable switch a feature off.
func lookupString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
