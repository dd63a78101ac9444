// Package config provides YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/eda-explorer/backend/internal/explorer"
	"github.com/eda-explorer/backend/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. EDA_SERVER_PORT.
const EnvPrefix = "EDA"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Sessions SessionsConfig `mapstructure:"sessions" yaml:"sessions"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Explorer ExplorerConfig `mapstructure:"explorer" yaml:"explorer"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port                 int      `mapstructure:"port" yaml:"port"`
	BindAddress          string   `mapstructure:"bind_address" yaml:"bind_address"`
	EnableCORS           bool     `mapstructure:"enable_cors" yaml:"enable_cors"`
	AllowOrigins         []string `mapstructure:"allow_origins" yaml:"allow_origins"`
	ReadTimeoutSeconds   int      `mapstructure:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds  int      `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds   int      `mapstructure:"idle_timeout_seconds" yaml:"idle_timeout_seconds"`
	BodyLimit            string   `mapstructure:"body_limit" yaml:"body_limit"`
	EnableCompression    bool     `mapstructure:"enable_compression" yaml:"enable_compression"`
	CompressionLevel     int      `mapstructure:"compression_level" yaml:"compression_level"`
	EnableRequestLogging bool     `mapstructure:"enable_request_logging" yaml:"enable_request_logging"`
	ShowErrorDetails     bool     `mapstructure:"show_error_details" yaml:"show_error_details"`
	AllowFileDeletion    bool     `mapstructure:"allow_file_deletion" yaml:"allow_file_deletion"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory    string `mapstructure:"data_directory" yaml:"data_directory"`
	UploadsDirectory string `mapstructure:"uploads_directory" yaml:"uploads_directory"`
	MaxUploadBytes   int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	// RetentionMinutes removes uploads older than this; 0 keeps them.
	RetentionMinutes int `mapstructure:"retention_minutes" yaml:"retention_minutes"`
}

// SessionsConfig bounds the session pool
type SessionsConfig struct {
	MaxSessions            int `mapstructure:"max_sessions" yaml:"max_sessions"`
	TimeoutMinutes         int `mapstructure:"timeout_minutes" yaml:"timeout_minutes"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes"`
	KeepAliveSeconds       int `mapstructure:"keep_alive_seconds" yaml:"keep_alive_seconds"`
	LoadTimeoutSeconds     int `mapstructure:"load_timeout_seconds" yaml:"load_timeout_seconds"`
}

// CacheConfig sizes the parsed table cache
type CacheConfig struct {
	Size int `mapstructure:"size" yaml:"size"`
}

// ExplorerConfig tunes the embedded aggregation database
type ExplorerConfig struct {
	MemoryLimit    string `mapstructure:"memory_limit" yaml:"memory_limit"`
	Threads        int    `mapstructure:"threads" yaml:"threads"`
	MaxConcurrency int    `mapstructure:"max_concurrency" yaml:"max_concurrency"`
	MaxGroupBy     int    `mapstructure:"max_group_by" yaml:"max_group_by"`
	DefaultLimit   int    `mapstructure:"default_limit" yaml:"default_limit"`
	MaxLimit       int    `mapstructure:"max_limit" yaml:"max_limit"`
}

// LoggingConfig selects the slog handler
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	ex := explorer.DefaultConfig()
	sess := session.DefaultConfig()
	return &AppConfig{
		Server: ServerConfig{
			Port:                 8089,
			BindAddress:          "0.0.0.0",
			EnableCORS:           true,
			AllowOrigins:         []string{"*"},
			ReadTimeoutSeconds:   60,
			WriteTimeoutSeconds:  60,
			IdleTimeoutSeconds:   120,
			BodyLimit:            "200M",
			EnableCompression:    true,
			CompressionLevel:     5,
			EnableRequestLogging: true,
			AllowFileDeletion:    true,
		},
		Storage: StorageConfig{
			DataDirectory:    "./data",
			UploadsDirectory: "./data/uploads",
			MaxUploadBytes:   200 << 20,
			RetentionMinutes: 24 * 60,
		},
		Sessions: SessionsConfig{
			MaxSessions:            sess.MaxSessions,
			TimeoutMinutes:         30,
			CleanupIntervalMinutes: 5,
			KeepAliveSeconds:       int(sess.KeepAliveWindow / time.Second),
			LoadTimeoutSeconds:     120,
		},
		Cache: CacheConfig{
			Size: 32,
		},
		Explorer: ExplorerConfig{
			MemoryLimit:    ex.MemoryLimit,
			Threads:        ex.Threads,
			MaxConcurrency: ex.MaxConcurrency,
			MaxGroupBy:     ex.MaxGroupBy,
			DefaultLimit:   ex.DefaultLimit,
			MaxLimit:       ex.MaxLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configPath, applies EDA_* environment overrides and fills the
// rest from defaults. A missing file is created with the defaults.
func Load(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := DefaultConfig().Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.resolvePaths(filepath.Dir(configPath))
	return &c, nil
}

// setDefaults registers every key so that environment overrides reach
// Unmarshal even when the file omits them.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.enable_cors", d.Server.EnableCORS)
	v.SetDefault("server.allow_origins", d.Server.AllowOrigins)
	v.SetDefault("server.read_timeout_seconds", d.Server.ReadTimeoutSeconds)
	v.SetDefault("server.write_timeout_seconds", d.Server.WriteTimeoutSeconds)
	v.SetDefault("server.idle_timeout_seconds", d.Server.IdleTimeoutSeconds)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.enable_compression", d.Server.EnableCompression)
	v.SetDefault("server.compression_level", d.Server.CompressionLevel)
	v.SetDefault("server.enable_request_logging", d.Server.EnableRequestLogging)
	v.SetDefault("server.show_error_details", d.Server.ShowErrorDetails)
	v.SetDefault("server.allow_file_deletion", d.Server.AllowFileDeletion)

	v.SetDefault("storage.data_directory", d.Storage.DataDirectory)
	v.SetDefault("storage.uploads_directory", d.Storage.UploadsDirectory)
	v.SetDefault("storage.max_upload_bytes", d.Storage.MaxUploadBytes)
	v.SetDefault("storage.retention_minutes", d.Storage.RetentionMinutes)

	v.SetDefault("sessions.max_sessions", d.Sessions.MaxSessions)
	v.SetDefault("sessions.timeout_minutes", d.Sessions.TimeoutMinutes)
	v.SetDefault("sessions.cleanup_interval_minutes", d.Sessions.CleanupIntervalMinutes)
	v.SetDefault("sessions.keep_alive_seconds", d.Sessions.KeepAliveSeconds)
	v.SetDefault("sessions.load_timeout_seconds", d.Sessions.LoadTimeoutSeconds)

	v.SetDefault("cache.size", d.Cache.Size)

	v.SetDefault("explorer.memory_limit", d.Explorer.MemoryLimit)
	v.SetDefault("explorer.threads", d.Explorer.Threads)
	v.SetDefault("explorer.max_concurrency", d.Explorer.MaxConcurrency)
	v.SetDefault("explorer.max_group_by", d.Explorer.MaxGroupBy)
	v.SetDefault("explorer.default_limit", d.Explorer.DefaultLimit)
	v.SetDefault("explorer.max_limit", d.Explorer.MaxLimit)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Save writes the configuration as YAML
func (c *AppConfig) Save(configPath string) error {
	if dir := filepath.Dir(configPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# EDA explorer configuration\n# This file is auto-generated on first run\n\n")
	if err := os.WriteFile(configPath, append(header, out...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage.max_upload_bytes must be positive, got %d", c.Storage.MaxUploadBytes)
	}
	if c.Sessions.MaxSessions <= 0 {
		return fmt.Errorf("sessions.max_sessions must be positive, got %d", c.Sessions.MaxSessions)
	}
	if c.Sessions.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("sessions.cleanup_interval_minutes must be positive, got %d", c.Sessions.CleanupIntervalMinutes)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(configDir, c.Storage.UploadsDirectory)
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	for _, dir := range []string{c.Storage.DataDirectory, c.Storage.UploadsDirectory} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SessionConfig converts the settings for session.NewManager.
func (c *AppConfig) SessionConfig() session.Config {
	return session.Config{
		MaxSessions:     c.Sessions.MaxSessions,
		KeepAliveWindow: time.Duration(c.Sessions.KeepAliveSeconds) * time.Second,
		Explorer: explorer.Config{
			MemoryLimit:    c.Explorer.MemoryLimit,
			Threads:        c.Explorer.Threads,
			MaxConcurrency: c.Explorer.MaxConcurrency,
			MaxGroupBy:     c.Explorer.MaxGroupBy,
			DefaultLimit:   c.Explorer.DefaultLimit,
			MaxLimit:       c.Explorer.MaxLimit,
		},
	}
}

// SessionTimeout is how long an idle session survives.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.TimeoutMinutes) * time.Minute
}

// CleanupInterval is the period of the session cleanup ticker.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Sessions.CleanupIntervalMinutes) * time.Minute
}

// LoadTimeout bounds a single table load.
func (c *AppConfig) LoadTimeout() time.Duration {
	return time.Duration(c.Sessions.LoadTimeoutSeconds) * time.Second
}

// Retention is the age after which uploads are purged; zero disables it.
func (c *AppConfig) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionMinutes) * time.Minute
}
