package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	TMDB    TMDBConfig    `mapstructure:"tmdb"`
	Server  ServerConfig  `mapstructure:"server"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Theme   ThemeConfig   `mapstructure:"theme"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TMDBConfig holds TMDB API connection details
type TMDBConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	PosterURL string        `mapstructure:"poster_url"`
	ImageURL  string        `mapstructure:"image_url"`
	Timeout   time.Duration `mapstructure:"timeout"` // 0 means no client timeout
}

// ServerConfig contains web server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// RenderTimeout is how long a page waits for its sections before
	// rendering the rest as placeholders
	RenderTimeout   time.Duration `mapstructure:"render_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig contains request cache settings
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the optional shared response store
type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// ThemeConfig contains the theme the process starts with
type ThemeConfig struct {
	Default string `mapstructure:"default"`
}

// FilterConfig contains list filter settings
type FilterConfig struct {
	DefaultExpression string                  `mapstructure:"default_expression"`
	Presets           map[string]PresetConfig `mapstructure:"presets"`
}

// PresetConfig is a named filter expression
type PresetConfig struct {
	Expression  string `mapstructure:"expression"`
	Description string `mapstructure:"description"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// SentryConfig enables error reporting. Reporting is off while DSN is empty.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Debug       bool    `mapstructure:"debug"`
}

// Enabled reports whether a DSN is configured
func (c SentryConfig) Enabled() bool {
	return c.DSN != ""
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
