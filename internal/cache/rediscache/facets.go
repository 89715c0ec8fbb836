// Package rediscache stores the facet aggregation in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/go-redis/redis/v8"
)

// DefaultKey is where the facets JSON document is stored.
const DefaultKey = "golden-timeline:facets"

var errStaleGeneration = errors.New("facets generation changed")

// FacetCache implements domain.FacetCache on a Redis client.
type FacetCache struct {
	client *redis.Client
	key    string
}

var _ domain.FacetCache = (*FacetCache)(nil)

// New wraps an existing client. An empty key selects DefaultKey.
func New(client *redis.Client, key string) *FacetCache {
	if key == "" {
		key = DefaultKey
	}
	return &FacetCache{client: client, key: key}
}

// Dial parses a redis:// URL, connects and pings.
func Dial(ctx context.Context, url string) (*FacetCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, ""), nil
}

// Get returns domain.ErrNotFound on a cache miss.
func (c *FacetCache) Get(ctx context.Context) (*domain.Facets, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("redis get facets", err)
	}

	var f domain.Facets
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode cached facets: %w", err)
	}
	return &f, nil
}

// Generation returns the invalidation counter, zero before the first
// Invalidate.
func (c *FacetCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, domain.NewStoreError("redis get facets generation", err)
	}
	return gen, nil
}

// Set stores facets for ttl, unless the generation has moved past generation.
// The check and the write run under WATCH, so an Invalidate racing with Set
// either lands first and skips the write or lands after and deletes it. A
// non-positive ttl skips the write.
func (c *FacetCache) Set(ctx context.Context, facets *domain.Facets, generation int64, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(facets)
	if err != nil {
		return fmt.Errorf("encode facets: %w", err)
	}

	genKey := c.generationKey()
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, raw, ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return domain.NewStoreError("redis set facets", err)
	}
}

// Invalidate drops the cached facets and advances the generation.
func (c *FacetCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		pipe.Incr(ctx, c.generationKey())
		return nil
	})
	if err != nil {
		return domain.NewStoreError("redis invalidate facets", err)
	}
	return nil
}

func (c *FacetCache) generationKey() string {
	return c.key + ":generation"
}

// Close closes the underlying client.
func (c *FacetCache) Close() error {
	return c.client.Close()
}
