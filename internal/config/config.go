package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ontoroute/ontoroute/internal/platform/envutil"
)

// Engine holds resolution defaults. Values load from an optional yaml file,
// then env vars override, so deployments can tune without a file at all.
type Engine struct {
	BatchSize            int           `yaml:"batch_size"`
	MaxConcurrentBatches int           `yaml:"max_concurrent_batches"`
	MinConfidence        float64       `yaml:"min_confidence"`
	MaxHopCount          int           `yaml:"max_hop_count"`
	RetryCeiling         int           `yaml:"retry_ceiling"`
	BackoffBase          time.Duration `yaml:"backoff_base"`
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	CacheNoMatchTTL      time.Duration `yaml:"cache_no_match_ttl"`
	CacheBackend         string        `yaml:"cache_backend"` // "postgres" | "redis"
	AllowReverse         bool          `yaml:"allow_reverse"`
}

// UnmarshalYAML accepts durations in time.ParseDuration notation ("500ms",
// "24h") and leaves keys absent from the document untouched, so file values
// layer over the defaults.
func (e *Engine) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BatchSize            *int     `yaml:"batch_size"`
		MaxConcurrentBatches *int     `yaml:"max_concurrent_batches"`
		MinConfidence        *float64 `yaml:"min_confidence"`
		MaxHopCount          *int     `yaml:"max_hop_count"`
		RetryCeiling         *int     `yaml:"retry_ceiling"`
		BackoffBase          string   `yaml:"backoff_base"`
		CacheTTL             string   `yaml:"cache_ttl"`
		CacheNoMatchTTL      string   `yaml:"cache_no_match_ttl"`
		CacheBackend         string   `yaml:"cache_backend"`
		AllowReverse         *bool    `yaml:"allow_reverse"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.BatchSize != nil {
		e.BatchSize = *raw.BatchSize
	}
	if raw.MaxConcurrentBatches != nil {
		e.MaxConcurrentBatches = *raw.MaxConcurrentBatches
	}
	if raw.MinConfidence != nil {
		e.MinConfidence = *raw.MinConfidence
	}
	if raw.MaxHopCount != nil {
		e.MaxHopCount = *raw.MaxHopCount
	}
	if raw.RetryCeiling != nil {
		e.RetryCeiling = *raw.RetryCeiling
	}
	if raw.CacheBackend != "" {
		e.CacheBackend = raw.CacheBackend
	}
	if raw.AllowReverse != nil {
		e.AllowReverse = *raw.AllowReverse
	}
	for _, d := range []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"backoff_base", raw.BackoffBase, &e.BackoffBase},
		{"cache_ttl", raw.CacheTTL, &e.CacheTTL},
		{"cache_no_match_ttl", raw.CacheNoMatchTTL, &e.CacheNoMatchTTL},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func Defaults() Engine {
	return Engine{
		BatchSize:            250,
		MaxConcurrentBatches: 4,
		MinConfidence:        0,
		MaxHopCount:          0,
		RetryCeiling:         3,
		BackoffBase:          500 * time.Millisecond,
		CacheTTL:             7 * 24 * time.Hour,
		CacheNoMatchTTL:      24 * time.Hour,
		CacheBackend:         "postgres",
		AllowReverse:         true,
	}
}

// Load reads the yaml file at path when it exists, then applies env
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Engine, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env overrides
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}
	cfg.BatchSize = envutil.Int("ENGINE_BATCH_SIZE", cfg.BatchSize)
	cfg.MaxConcurrentBatches = envutil.Int("ENGINE_MAX_CONCURRENT_BATCHES", cfg.MaxConcurrentBatches)
	cfg.MinConfidence = envutil.Float("ENGINE_MIN_CONFIDENCE", cfg.MinConfidence)
	cfg.MaxHopCount = envutil.Int("ENGINE_MAX_HOP_COUNT", cfg.MaxHopCount)
	cfg.RetryCeiling = envutil.Int("ENGINE_RETRY_CEILING", cfg.RetryCeiling)
	cfg.BackoffBase = envutil.Duration("ENGINE_BACKOFF_BASE", cfg.BackoffBase)
	cfg.CacheTTL = envutil.Duration("ENGINE_CACHE_TTL", cfg.CacheTTL)
	cfg.CacheNoMatchTTL = envutil.Duration("ENGINE_CACHE_NO_MATCH_TTL", cfg.CacheNoMatchTTL)
	cfg.CacheBackend = envutil.String("ENGINE_CACHE_BACKEND", cfg.CacheBackend)
	cfg.AllowReverse = envutil.Bool("ENGINE_ALLOW_REVERSE", cfg.AllowReverse)

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 250
	}
	if cfg.MaxConcurrentBatches <= 0 {
		cfg.MaxConcurrentBatches = 4
	}
	if cfg.RetryCeiling < 0 {
		cfg.RetryCeiling = 0
	}
	return cfg, nil
}
