package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/platform/logger"
)

// CacheStore is the Redis backend of the resolution cache. It satisfies the
// same narrow surface as the SQL-backed repo, so either can sit behind the
// cache manager.
type CacheStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

func NewCacheStore(log *logger.Logger) (*CacheStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(os.Getenv("REDIS_CACHE_PREFIX"))
	if prefix == "" {
		prefix = "ontoroute:cache"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &CacheStore{
		log:    log.With("service", "RedisCacheStore"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (s *CacheStore) key(sourceOntology, targetOntology, identifier string) string {
	return fmt.Sprintf("%s:%s:%s:%s", s.prefix, sourceOntology, targetOntology, identifier)
}

func (s *CacheStore) GetBatch(ctx context.Context, sourceOntology, targetOntology string, identifiers []string) ([]*types.MappingCacheEntry, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		keys = append(keys, s.key(sourceOntology, targetOntology, id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	out := make([]*types.MappingCacheEntry, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok || raw == "" {
			continue
		}
		var entry types.MappingCacheEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			s.log.Warn("dropping undecodable cache entry", "error", err)
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}

func (s *CacheStore) Upsert(ctx context.Context, entries []*types.MappingCacheEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	pipe := s.rdb.Pipeline()
	for _, e := range entries {
		if e == nil {
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode cache entry: %w", err)
		}
		var ttl time.Duration
		if e.ExpiresAt != nil {
			ttl = time.Until(*e.ExpiresAt)
			if ttl <= 0 {
				continue
			}
		}
		pipe.Set(ctx, s.key(e.SourceOntology, e.TargetOntology, e.Identifier), raw, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op for Redis: entries carry native TTLs.
func (s *CacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (s *CacheStore) Close() error { return s.rdb.Close() }
