// Package config loads and validates zipline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Nergy-TCGeneric/Zipline/internal/boj"
	"github.com/Nergy-TCGeneric/Zipline/internal/storage"
)

// EnvPrefix prefixes every environment override, e.g. ZIPLINE_BOJ_COOKIE.
const EnvPrefix = "ZIPLINE"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	BOJ       BOJConfig       `mapstructure:"boj"`
	Pusher    PusherConfig    `mapstructure:"pusher"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BOJConfig describes the site session and request pacing.
type BOJConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	Cookie         string  `mapstructure:"cookie"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	Burst          int     `mapstructure:"burst"`
	// Language is the preferred language code; -1 picks the lowest code
	// matching the source extension.
	Language int    `mapstructure:"language"`
	CodeOpen string `mapstructure:"code_open"`
}

// Timeout is the per-request timeout.
func (c BOJConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PusherConfig configures the judge progress websocket.
type PusherConfig struct {
	URL                string `mapstructure:"url"`
	IdleTimeoutSeconds int    `mapstructure:"idle_timeout_seconds"`
}

// IdleTimeout bounds a single receive; zero disables it.
func (c PusherConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// HeadlessConfig configures the browser fallback.
type HeadlessConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	NavTimeoutSeconds int  `mapstructure:"nav_timeout_seconds"`
	MinHTMLBytes      int  `mapstructure:"min_html_bytes"`
}

// NavTimeout is the browser navigation timeout.
func (c HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}

// SnapshotsConfig selects where raw pages are kept.
type SnapshotsConfig struct {
	Backend   string `mapstructure:"backend"`
	Dir       string `mapstructure:"dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// Storage converts the section for storage.Open.
func (c SnapshotsConfig) Storage() storage.Config {
	return storage.Config{Backend: c.Backend, Dir: c.Dir, GCSBucket: c.GCSBucket, Prefix: c.Prefix}
}

// DBConfig controls the outcome database. An empty DSN disables it.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for outcome notifications. An empty project
// disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig exposes /metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from a .env file in the working directory, the
// optional config file at path, and ZIPLINE_* environment variables.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("boj.base_url", boj.DefaultBaseURL)
	v.SetDefault("boj.cookie", "")
	v.SetDefault("boj.user_agent", "zipline/0.1 (+https://github.com/Nergy-TCGeneric/Zipline)")
	v.SetDefault("boj.timeout_seconds", 15)
	v.SetDefault("boj.rate_per_second", 1.0)
	v.SetDefault("boj.burst", 2)
	v.SetDefault("boj.language", int(boj.NoLanguage))
	v.SetDefault("boj.code_open", string(boj.CodeOpenOnlyAccepted))
	v.SetDefault("pusher.url", "")
	v.SetDefault("pusher.idle_timeout_seconds", 300)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.min_html_bytes", 2048)
	v.SetDefault("snapshots.backend", storage.BackendNone)
	v.SetDefault("snapshots.dir", "snapshots")
	v.SetDefault("snapshots.gcs_bucket", "")
	v.SetDefault("snapshots.prefix", "pages")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "judge_outcomes")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "judge-outcomes")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.BOJ.TimeoutSeconds <= 0 {
		return errors.New("boj.timeout_seconds must be > 0")
	}
	if c.BOJ.RatePerSecond < 0 {
		return errors.New("boj.rate_per_second must be >= 0")
	}
	if c.BOJ.RatePerSecond > 0 && c.BOJ.Burst <= 0 {
		return errors.New("boj.burst must be > 0 when rate limiting is enabled")
	}
	if c.BOJ.Language != int(boj.NoLanguage) {
		if _, err := boj.ParseLanguage(c.BOJ.Language); err != nil {
			return fmt.Errorf("boj.language: %w", err)
		}
	}
	if _, err := boj.ParseCodeOpen(c.BOJ.CodeOpen); err != nil {
		return fmt.Errorf("boj.code_open: %w", err)
	}
	if c.Pusher.IdleTimeoutSeconds < 0 {
		return errors.New("pusher.idle_timeout_seconds must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.NavTimeoutSeconds <= 0 {
		return errors.New("headless.nav_timeout_seconds must be > 0 when headless is enabled")
	}
	switch strings.ToLower(c.Snapshots.Backend) {
	case "", storage.BackendNone, storage.BackendMemory:
	case storage.BackendLocal:
		if c.Snapshots.Dir == "" {
			return errors.New("snapshots.dir must be set for the local backend")
		}
	case storage.BackendGCS:
		if c.Snapshots.GCSBucket == "" {
			return errors.New("snapshots.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshots.backend %q is not one of none, memory, local, gcs", c.Snapshots.Backend)
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return errors.New("pubsub.topic_name must be set when pubsub.project_id is")
	}
	return nil
}
