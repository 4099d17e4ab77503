package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// View modes for rendering result lists
const (
	ViewGrid = "grid"
	ViewList = "list"
)

// Config represents the application configuration
type Config struct {
	URL         string `validate:"required,url"`
	Token       string
	PageSize    int    `validate:"min=1,max=100"`
	WindowSize  int    `validate:"min=1,max=15"`
	DefaultSort string `validate:"oneof=alfabetica recentes antigos salvos-recentes salvos-antigos"`
	View        string `validate:"oneof=grid list"`

	Log     LogConfig
	Cache   CacheConfig
	Session SessionConfig
	Server  ServerConfig
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string `validate:"omitempty,oneof=debug info warn error"`
	Format string `validate:"omitempty,oneof=console json"`
}

// CacheConfig configures the optional Redis cache for entry lists.
// An empty RedisAddr disables caching.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Enabled reports whether a Redis address is configured
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// SessionConfig tunes the session watchdog
type SessionConfig struct {
	CheckInterval time.Duration
	ExpirySkew    time.Duration
}

// ServerConfig configures the read-only results server
type ServerConfig struct {
	Addr string
}

var validate = validator.New()

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values, and a .env
// file in the working directory is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		dir, err := defaultConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variable bindings (higher priority), e.g. MODELOS_URL,
	// MODELOS_CACHE_REDIS_ADDR
	v.SetEnvPrefix("MODELOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)

	if cfg.URL == "" {
		return nil, fmt.Errorf("no configuration found. Run 'modelosctl config init' to set up")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s fails '%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Default returns a configuration with every default applied and no URL
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		URL:         v.GetString("url"),
		Token:       v.GetString("token"),
		PageSize:    v.GetInt("page_size"),
		WindowSize:  v.GetInt("window_size"),
		DefaultSort: v.GetString("default_sort"),
		View:        v.GetString("view"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("cache.redis_addr"),
			RedisPassword: v.GetString("cache.redis_password"),
			RedisDB:       v.GetInt("cache.redis_db"),
			TTL:           parseDuration(v.GetString("cache.ttl"), 5*time.Minute),
		},
		Session: SessionConfig{
			CheckInterval: parseDuration(v.GetString("session.check_interval"), 30*time.Second),
			ExpirySkew:    parseDuration(v.GetString("session.expiry_skew"), time.Minute),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("page_size", 9)
	v.SetDefault("window_size", 5)
	v.SetDefault("default_sort", "recentes")
	v.SetDefault("view", ViewGrid)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("session.check_interval", "30s")
	v.SetDefault("session.expiry_skew", "1m")
	v.SetDefault("server.addr", ":8080")
}

func defaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "modelosctl"), nil
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() (string, error) {
	dir, err := defaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Save writes the user-editable settings to the specified path. Values
// already present in an existing file are preserved.
func Save(cfg *Config, configPath string) error {
	// Ensure directory exists with restricted permissions (owner-only)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.Set("url", cfg.URL)
	v.Set("token", cfg.Token)
	if cfg.View != "" {
		v.Set("view", cfg.View)
	}
	if cfg.PageSize > 0 {
		v.Set("page_size", cfg.PageSize)
	}
	if cfg.DefaultSort != "" {
		v.Set("default_sort", cfg.DefaultSort)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Set restrictive permissions on config file (owner read/write only)
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}

	return d
}
