package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Server      ServerConfig      `mapstructure:"server"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	EventLogger EventLoggerConfig `mapstructure:"eventlogger"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Log         LogConfig         `mapstructure:"log"`
	ConfigPath  string            `mapstructure:"-"`
}

type DatabaseConfig struct {
	// Driver is one of "postgres", "sqlite3" or "memory".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LedgerConfig struct {
	AppendRetries   int    `mapstructure:"append_retries"`
	DefaultCurrency string `mapstructure:"default_currency"`
}

type EventLoggerConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type IdempotencyConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func NewDefault() *Config {
	return &Config{
		Database:    DatabaseConfig{Driver: "sqlite3", DSN: "acasinha.db"},
		Server:      ServerConfig{Addr: ":5000"},
		Ledger:      LedgerConfig{AppendRetries: 5, DefaultCurrency: "INR"},
		EventLogger: EventLoggerConfig{BufferSize: 100},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Defaults lists every key with its default value, for registering with
// viper so that environment overrides work for keys missing from the file.
func (c *Config) Defaults() map[string]any {
	return map[string]any{
		"database.driver":         c.Database.Driver,
		"database.dsn":            c.Database.DSN,
		"server.addr":             c.Server.Addr,
		"ledger.append_retries":   c.Ledger.AppendRetries,
		"ledger.default_currency": c.Ledger.DefaultCurrency,
		"eventlogger.buffer_size": c.EventLogger.BufferSize,
		"idempotency.ttl":         c.Idempotency.TTL,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Ledger.AppendRetries < 0 {
		return fmt.Errorf("ledger.append_retries can't be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the process logger from the log settings.
func (c *Config) NewLogger() *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", s)
	}
	return level, nil
}
