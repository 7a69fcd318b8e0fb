package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Highlights HighlightsConfig `yaml:"highlights" mapstructure:"highlights"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Places API settings.
type GoogleConfig struct {
	APIKey           string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxPages         int     `yaml:"max_pages" mapstructure:"max_pages"`
	PageTokenDelayMS int     `yaml:"page_token_delay_ms" mapstructure:"page_token_delay_ms"`
	PhotoMaxWidth    int     `yaml:"photo_max_width" mapstructure:"photo_max_width"`
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	// BreakerThreshold consecutive transient failures open the breaker for
	// BreakerCooldownSecs. 0 disables it.
	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// Timeout returns the per-request HTTP timeout.
func (g GoogleConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// PageTokenDelay returns the wait before requesting a follow-up page.
func (g GoogleConfig) PageTokenDelay() time.Duration {
	return time.Duration(g.PageTokenDelayMS) * time.Millisecond
}

// SearchConfig configures the cached search service.
type SearchConfig struct {
	CacheTTLSecs       int `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	DetailsConcurrency int `yaml:"details_concurrency" mapstructure:"details_concurrency"`
}

// CacheTTL returns the search cache TTL.
func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSecs) * time.Second
}

// HighlightsConfig configures review highlight selection.
type HighlightsConfig struct {
	Count    int `yaml:"count" mapstructure:"count"`
	MaxChars int `yaml:"max_chars" mapstructure:"max_chars"`
}

// StoreConfig configures the search history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Enabled reports whether a history store is configured.
func (s StoreConfig) Enabled() bool {
	return s.Driver != "" && s.Driver != "none"
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REVIEWCMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("google.timeout_secs", 10)
	v.SetDefault("google.rate_limit", 10.0)
	v.SetDefault("google.max_pages", 3)
	v.SetDefault("google.page_token_delay_ms", 2000)
	v.SetDefault("google.photo_max_width", 400)
	v.SetDefault("google.max_retries", 3)
	v.SetDefault("google.breaker_threshold", 5)
	v.SetDefault("google.breaker_cooldown_secs", 30)
	v.SetDefault("search.cache_ttl_secs", 300)
	v.SetDefault("search.details_concurrency", 4)
	v.SetDefault("highlights.count", 3)
	v.SetDefault("highlights.max_chars", 200)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: "search"
// (any command that calls the Places API), "serve" and "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "search":
		problems = append(problems, c.validateGoogle()...)
	case "serve":
		problems = append(problems, c.validateGoogle()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "store":
		switch c.Store.Driver {
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		if mode != "store" {
			problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
		}
	}

	if c.Search.CacheTTLSecs < 0 {
		problems = append(problems, "search.cache_ttl_secs must be >= 0")
	}
	if c.Search.DetailsConcurrency < 1 || c.Search.DetailsConcurrency > 32 {
		problems = append(problems, "search.details_concurrency must be between 1 and 32")
	}
	if c.Highlights.Count < 1 {
		problems = append(problems, "highlights.count must be >= 1")
	}
	if c.Highlights.MaxChars < 1 {
		problems = append(problems, "highlights.max_chars must be >= 1")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateGoogle() []string {
	var problems []string
	if c.Google.APIKey == "" {
		problems = append(problems, "google.api_key is required")
	}
	if c.Google.MaxPages < 1 {
		problems = append(problems, "google.max_pages must be >= 1")
	}
	if c.Google.RateLimit <= 0 {
		problems = append(problems, "google.rate_limit must be > 0")
	}
	if c.Google.BreakerThreshold < 0 {
		problems = append(problems, "google.breaker_threshold must be >= 0")
	}
	return problems
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
