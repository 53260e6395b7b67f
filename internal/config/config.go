// Package config loads application configuration from config.yaml and
// GOLFDIR_* environment variables, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Google     GoogleConfig     `yaml:"google" mapstructure:"google"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Cloudinary CloudinaryConfig `yaml:"cloudinary" mapstructure:"cloudinary"`
	Discover   DiscoverConfig   `yaml:"discover" mapstructure:"discover"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Lodging    LodgingConfig    `yaml:"lodging" mapstructure:"lodging"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GoogleConfig holds place-search provider credentials. Environment selects
// which key is active; PhotoKey falls back to APIKey when unset.
type GoogleConfig struct {
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	StagingKey  string `yaml:"staging_api_key" mapstructure:"staging_api_key"`
	PhotoKey    string `yaml:"photo_key" mapstructure:"photo_key"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// ActiveKey returns the API key for the configured deployment environment.
func (g GoogleConfig) ActiveKey() string {
	if g.Environment == "staging" && g.StagingKey != "" {
		return g.StagingKey
	}
	return g.APIKey
}

// AnthropicConfig holds text-generation provider settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// CloudinaryConfig holds image-hosting provider settings; enrichment skips
// photo rehosting when CloudName is empty.
type CloudinaryConfig struct {
	CloudName    string `yaml:"cloud_name" mapstructure:"cloud_name"`
	UploadPreset string `yaml:"upload_preset" mapstructure:"upload_preset"`
}

// DiscoverConfig tunes the search orchestrator. The page cap, delays and
// early-termination threshold are throughput/cost knobs, not correctness
// requirements.
type DiscoverConfig struct {
	MaxPages         int `yaml:"max_pages" mapstructure:"max_pages"`
	PageDelayMs      int `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	RequestDelayMs   int `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	MinNewResults    int `yaml:"min_new_results" mapstructure:"min_new_results"`
	RadiusMeters     int `yaml:"radius_meters" mapstructure:"radius_meters"`
	TransientRetries int `yaml:"transient_retries" mapstructure:"transient_retries"`
}

// EnrichConfig tunes the structured enrichment engine.
type EnrichConfig struct {
	MaxAttempts        int  `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs        int  `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxTokens          int  `yaml:"max_tokens" mapstructure:"max_tokens"`
	RewriteDescription bool `yaml:"rewrite_description" mapstructure:"rewrite_description"`
	Concurrency        int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// LodgingConfig configures the secondary lodging listing crawler.
type LodgingConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	MaxPages       int     `yaml:"max_pages" mapstructure:"max_pages"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GOLFDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "golfdir.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("google.environment", "production")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("discover.max_pages", 3)
	v.SetDefault("discover.page_delay_ms", 2000)
	v.SetDefault("discover.request_delay_ms", 1500)
	v.SetDefault("discover.min_new_results", 5)
	v.SetDefault("discover.radius_meters", 50000)
	v.SetDefault("discover.transient_retries", 3)
	v.SetDefault("enrich.max_attempts", 3)
	v.SetDefault("enrich.base_delay_ms", 1000)
	v.SetDefault("enrich.max_tokens", 1024)
	v.SetDefault("enrich.rewrite_description", true)
	v.SetDefault("enrich.concurrency", 1)
	v.SetDefault("lodging.max_pages", 5)
	v.SetDefault("lodging.requests_per_sec", 1)

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
