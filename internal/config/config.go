// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Pools      PoolsConfig      `mapstructure:"pools"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Render     RenderConfig     `mapstructure:"render"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Store      StoreConfig      `mapstructure:"store"`
	Subprocess SubprocessConfig `mapstructure:"subprocess"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PoolsConfig sizes the three worker lanes. Row tasks may block on nested
// render/subprocess work while holding their slot, so the row lane should be
// at least as large as the other two combined.
type PoolsConfig struct {
	Rows       int `mapstructure:"rows"`
	Render     int `mapstructure:"render"`
	Subprocess int `mapstructure:"subprocess"`
}

// HTTPConfig configures direct fetch behavior.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxAttempts    int    `mapstructure:"max_attempts"`
	BackoffBaseMs  int    `mapstructure:"backoff_base_ms"`
	UserAgent      string `mapstructure:"user_agent"`
}

// Timeout returns the per-call fetch timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (c HTTPConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMs) * time.Millisecond
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// NavTimeout returns the navigation timeout for one render.
func (c RenderConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// CacheConfig locates the content cache.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// StoreConfig selects where dataset snapshots are persisted. DSN, when set,
// switches from the file store to Postgres.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
	DSN string `mapstructure:"dsn"`
}

// SubprocessConfig configures the external extraction process.
type SubprocessConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// OpenAIConfig configures the batch stages.
type OpenAIConfig struct {
	APIKey             string `mapstructure:"api_key"`
	Model              string `mapstructure:"model"`
	PollIntervalSec    int    `mapstructure:"poll_interval_seconds"`
	PollCeilingMinutes int    `mapstructure:"poll_ceiling_minutes"`
	StageRetries       int    `mapstructure:"stage_retries"`
	RetryBackoffSec    int    `mapstructure:"retry_backoff_seconds"`
}

// PollInterval returns the fixed batch poll interval.
func (c OpenAIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

// PollCeiling returns the wall-clock ceiling for one batch job.
func (c OpenAIConfig) PollCeiling() time.Duration {
	return time.Duration(c.PollCeilingMinutes) * time.Minute
}

// RetryBackoff returns the base delay between stage retries.
func (c OpenAIConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSec) * time.Second
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRESSMILL")
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("pools.rows", 10)
	v.SetDefault("pools.render", 2)
	v.SetDefault("pools.subprocess", 4)
	v.SetDefault("http.timeout_seconds", 25)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_base_ms", 500)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36")
	v.SetDefault("render.enabled", false)
	v.SetDefault("render.nav_timeout_seconds", 60)
	v.SetDefault("cache.dir", ".cache")
	v.SetDefault("store.dir", ".cache/datasets")
	v.SetDefault("subprocess.command", "python3")
	v.SetDefault("subprocess.args", []string{"scripts/trafilatura_extract.py"})
	v.SetDefault("openai.model", "gpt-4.1-mini")
	v.SetDefault("openai.poll_interval_seconds", 5)
	v.SetDefault("openai.poll_ceiling_minutes", 60)
	v.SetDefault("openai.stage_retries", 3)
	v.SetDefault("openai.retry_backoff_seconds", 3)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("logging.development", true)
}

// Validate rejects configurations the pipeline cannot run with. The OpenAI
// key is deliberately not required here: its absence only aborts the batch
// stages, not extraction.
func (c Config) Validate() error {
	if c.Pools.Rows < 1 || c.Pools.Render < 1 || c.Pools.Subprocess < 1 {
		return fmt.Errorf("pool sizes must be >= 1")
	}
	if c.HTTP.MaxAttempts < 1 {
		return fmt.Errorf("http.max_attempts must be >= 1")
	}
	if c.HTTP.TimeoutSeconds < 1 {
		return fmt.Errorf("http.timeout_seconds must be >= 1")
	}
	if c.Cache.Dir == "" {
		return fmt.Errorf("cache.dir is required")
	}
	if c.Store.Dir == "" && c.Store.DSN == "" {
		return fmt.Errorf("store.dir or store.dsn is required")
	}
	if c.OpenAI.PollIntervalSec < 1 {
		return fmt.Errorf("openai.poll_interval_seconds must be >= 1")
	}
	if c.OpenAI.PollCeilingMinutes < 1 {
		return fmt.Errorf("openai.poll_ceiling_minutes must be >= 1")
	}
	if c.OpenAI.StageRetries < 1 {
		return fmt.Errorf("openai.stage_retries must be >= 1")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}
	return nil
}
