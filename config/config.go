package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/marquee/query"
	"github.com/s0up4200/marquee/theme"
	"github.com/s0up4200/marquee/tmdb"
)

// EnvPrefix prefixes every environment override, e.g. MARQUEE_TMDB_API_KEY
const EnvPrefix = "MARQUEE"

const placeholderAPIKey = "your-api-key-here"

// Load loads the configuration from file, a .env file and the environment.
// A missing config file is not an error; everything can come from the
// environment.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(configPath); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".marquee"))
		}

		// Check /etc
		v.AddConfigPath("/etc/marquee/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env from the working directory and from the config
// file's directory. Variables already set in the environment win.
func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", path, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// TMDB defaults
	v.SetDefault("tmdb.url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.poster_url", tmdb.DefaultPosterBase)
	v.SetDefault("tmdb.image_url", tmdb.DefaultImageBase)
	v.SetDefault("tmdb.timeout", time.Duration(0))

	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.render_timeout", 300*time.Millisecond)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Cache defaults
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.url", "redis://localhost:6379/0")
	v.SetDefault("cache.redis.key_prefix", query.DefaultRedisKeyPrefix)
	v.SetDefault("cache.redis.ttl", query.DefaultRedisTTL)

	// Theme defaults
	v.SetDefault("theme.default", string(theme.ModeLight))

	// Filter defaults
	v.SetDefault("filter.default_expression", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.endpoint", "/metrics")

	// Sentry defaults
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("sentry.debug", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.TMDB.URL == "" {
		return fmt.Errorf("tmdb.url is required")
	}

	if cfg.TMDB.APIKey == "" || cfg.TMDB.APIKey == placeholderAPIKey {
		return fmt.Errorf("tmdb.api_key must be set to a valid API key")
	}

	if cfg.TMDB.Timeout < 0 {
		return fmt.Errorf("tmdb.timeout must not be negative")
	}

	if cfg.Server.RenderTimeout < 0 {
		return fmt.Errorf("server.render_timeout must not be negative")
	}

	if _, err := theme.ParseMode(cfg.Theme.Default); err != nil {
		return fmt.Errorf("invalid theme.default: %s (must be 'light' or 'dark')", cfg.Theme.Default)
	}

	if cfg.Cache.Redis.Enabled && cfg.Cache.Redis.URL == "" {
		return fmt.Errorf("cache.redis.url is required when redis is enabled")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		return fmt.Errorf("invalid metrics.endpoint: %s (must start with '/')", cfg.Metrics.Endpoint)
	}

	if cfg.Sentry.Enabled() && (cfg.Sentry.SampleRate <= 0 || cfg.Sentry.SampleRate > 1) {
		return fmt.Errorf("invalid sentry.sample_rate: %g (must be in (0, 1])", cfg.Sentry.SampleRate)
	}

	for name, preset := range cfg.Filter.Presets {
		if strings.TrimSpace(preset.Expression) == "" {
			return fmt.Errorf("filter preset '%s' has no expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
