// Package config loads the pipeline settings: struct defaults, then an
// optional YAML file, then ENRICH_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bookenrich/internal/cache"
	"bookenrich/internal/platform/fetch"
	"bookenrich/internal/platform/googlebooks"
	"bookenrich/internal/platform/openlibrary"
	"bookenrich/internal/scheduler"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix     = "ENRICH_"
	ConfigPathEnv = "ENRICH_CONFIG"
)

type Config struct {
	Fetch     FetchConfig     `koanf:"fetch"`
	Providers ProvidersConfig `koanf:"providers"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Cache     CacheConfig     `koanf:"cache"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	DB        DBConfig        `koanf:"db"`
}

type FetchConfig struct {
	BaseDelay       time.Duration `koanf:"base_delay" validate:"gte=0"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	MaxJitter       time.Duration `koanf:"max_jitter" validate:"gte=0"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerSecond   float64       `koanf:"rate_per_second" validate:"gte=0"`
	UserAgent       string        `koanf:"user_agent" validate:"required"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
}

// Retry returns the backoff policy of the fetch client.
func (f FetchConfig) Retry() fetch.RetryPolicy {
	return fetch.RetryPolicy{BaseDelay: f.BaseDelay, MaxRetries: f.MaxRetries, MaxJitter: f.MaxJitter}
}

type ProvidersConfig struct {
	GoogleBooksURL string `koanf:"googlebooks_url" validate:"required,url"`
	GoogleBooksKey string `koanf:"googlebooks_key"`
	OpenLibraryURL string `koanf:"openlibrary_url" validate:"required,url"`
}

type SchedulerConfig struct {
	Concurrency   int           `koanf:"concurrency" validate:"gte=1,lte=64"`
	Delay         time.Duration `koanf:"delay" validate:"gte=0"`
	ProgressEvery int           `koanf:"progress_every" validate:"gte=1"`
}

type CacheConfig struct {
	Backend     string        `koanf:"backend" validate:"oneof=memory pebble redis"`
	Retention   time.Duration `koanf:"retention" validate:"gt=0"`
	Path        string        `koanf:"path" validate:"required_if=Backend pebble"`
	RedisAddr   string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	RedisPrefix string        `koanf:"redis_prefix"`
}

// BackendConfig returns the settings cache.Open needs.
func (c CacheConfig) BackendConfig() cache.BackendConfig {
	return cache.BackendConfig{Path: c.Path, RedisAddr: c.RedisAddr, RedisPrefix: c.RedisPrefix}
}

type PipelineConfig struct {
	Input  string `koanf:"input" validate:"required"`
	Output string `koanf:"output" validate:"required"`
	// Deadline bounds the whole run; zero means none.
	Deadline time.Duration `koanf:"deadline" validate:"gte=0"`
}

type LogConfig struct {
	Mode string `koanf:"mode" validate:"oneof=development production"`
}

type MetricsConfig struct {
	// Addr serves /metrics while the job runs when non-empty.
	Addr string `koanf:"addr" validate:"omitempty,hostname_port"`
}

type DBConfig struct {
	// DSN enables the Postgres mirror and run log when non-empty.
	DSN string `koanf:"dsn"`
}

func Defaults() *Config {
	retry := fetch.DefaultRetryPolicy()
	return &Config{
		Fetch: FetchConfig{
			BaseDelay:       retry.BaseDelay,
			MaxRetries:      retry.MaxRetries,
			MaxJitter:       retry.MaxJitter,
			Timeout:         15 * time.Second,
			RatePerSecond:   5,
			UserAgent:       "bookenrich/1.0 (+https://github.com/bookenrich)",
			BreakerFailures: 5,
		},
		Providers: ProvidersConfig{
			GoogleBooksURL: googlebooks.DefaultBaseURL,
			OpenLibraryURL: openlibrary.DefaultBaseURL,
		},
		Scheduler: SchedulerConfig{
			Concurrency:   scheduler.DefaultConcurrency,
			Delay:         150 * time.Millisecond,
			ProgressEvery: 25,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			Retention:   cache.DefaultRetention,
			Path:        ".cache/enrich",
			RedisPrefix: cache.DefaultRedisPrefix,
		},
		Pipeline: PipelineConfig{
			Input:  "data/books.json",
			Output: "data/books.enriched.json",
		},
		Log: LogConfig{Mode: "development"},
	}
}

// LoadEnvFiles reads .env and .env.local without overriding variables that
// are already set.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds the configuration. path names a YAML file; when empty,
// ENRICH_CONFIG is consulted and a missing variable means no file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps ENRICH_FETCH_MAX_RETRIES to fetch.max_retries. DB_DSN is
// accepted for db.dsn as well. Anything else is ignored.
func envKey(key string) string {
	if key == "DB_DSN" {
		return "db.dsn"
	}
	if !strings.HasPrefix(key, EnvPrefix) || key == ConfigPathEnv {
		return ""
	}
	section, rest, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}
