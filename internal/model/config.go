package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	ReadTimeoutSec  int    `mapstructure:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `mapstructure:"write_timeout_sec" yaml:"write_timeout_sec"`

	// CORSOrigin is echoed in Access-Control-Allow-Origin.
	CORSOrigin string `mapstructure:"cors_origin" yaml:"cors_origin"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	TokenTTLMin int    `mapstructure:"token_ttl_min" yaml:"token_ttl_min"`
}

// AIConfig holds settings for the text-completion integration.
type AIConfig struct {
	// Provider is "anthropic" for the real API or "mock" for canned responses.
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	MaxTokens  int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LoggingConfig controls log level, format, and optional file rotation.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// InsightsConfig tunes the analytics inputs.
type InsightsConfig struct {
	// RecentActivityLimit is how many of the latest activity rows feed the
	// health score's momentum term.
	RecentActivityLimit int `mapstructure:"recent_activity_limit" yaml:"recent_activity_limit"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	AI       AIConfig       `mapstructure:"ai" yaml:"ai"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Insights InsightsConfig `mapstructure:"insights" yaml:"insights"`
}

// configDir returns ~/.config/taskdash, falling back to the working directory.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskdash")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskdash/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDatabasePath returns ~/.config/taskdash/taskdash.db.
func DefaultDatabasePath() string {
	return filepath.Join(configDir(), "taskdash.db")
}

// writeHeadroomSec is the time left to write a response after the slowest
// completion call.
const writeHeadroomSec = 5

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeoutSec:  10,
			WriteTimeoutSec: 90,
			CORSOrigin:      "*",
		},
		Database: DatabaseConfig{
			Path: DefaultDatabasePath(),
		},
		Auth: AuthConfig{
			TokenTTLMin: 120,
		},
		AI: AIConfig{
			Provider:   "mock",
			Model:      "claude-sonnet-4-5-20250929",
			MaxTokens:  1024,
			BaseURL:    "https://api.anthropic.com",
			TimeoutSec: 60,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Insights: InsightsConfig{
			RecentActivityLimit: 10,
		},
	}
}

// setDefaults mirrors DefaultAppConfig into viper so missing keys and
// environment overrides resolve consistently.
func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout_sec", d.Server.ReadTimeoutSec)
	v.SetDefault("server.write_timeout_sec", d.Server.WriteTimeoutSec)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl_min", d.Auth.TokenTTLMin)
	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.timeout_sec", d.AI.TimeoutSec)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("insights.recent_activity_limit", d.Insights.RecentActivityLimit)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// TASKDASH_* environment variables override file values (for example
// TASKDASH_AUTH_JWT_SECRET). A missing file yields the defaults plus any
// environment overrides.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskdash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Insights.RecentActivityLimit <= 0 {
		cfg.Insights.RecentActivityLimit = 10
	}
	if cfg.Auth.TokenTTLMin <= 0 {
		cfg.Auth.TokenTTLMin = 120
	}
	if cfg.AI.TimeoutSec <= 0 {
		cfg.AI.TimeoutSec = DefaultAppConfig().AI.TimeoutSec
	}
	// Completion calls must finish while the response can still be written.
	if w := cfg.Server.WriteTimeoutSec; w > 0 && cfg.AI.TimeoutSec > w-writeHeadroomSec {
		cfg.AI.TimeoutSec = max(1, w-writeHeadroomSec)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("auth", cfg.Auth)
	v.Set("ai", cfg.AI)
	v.Set("logging", cfg.Logging)
	v.Set("insights", cfg.Insights)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
