package rediscache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/appdotbuilder/golden-timeline/internal/cache/rediscache"
	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/go-redis/redis/v8"
)

func newTestCache(t *testing.T) (*rediscache.FacetCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return rediscache.New(client, ""), mr
}

func sampleFacets() *domain.Facets {
	return domain.AggregateFacets([]domain.LocationCount{
		{Country: "Spain", City: "Madrid", Posts: 2, NextExpiry: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Country: "Italy", City: "Rome", Posts: 1, NextExpiry: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)},
	})
}

func TestFacetCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on miss, got %v", err)
	}
}

func TestFacetCache_SetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, sampleFacets(), 0, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Categories) != 10 || len(got.Countries) != 2 || got.Stats.TotalPosts != 3 {
		t.Fatalf("unexpected cached facets: %+v", got)
	}
	if !got.NextExpiry.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatalf("unexpected next expiry: %v", got.NextExpiry)
	}

	if ttl := mr.TTL(rediscache.DefaultKey); ttl != time.Minute {
		t.Fatalf("expected TTL 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := cache.Get(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected entry to expire, got %v", err)
	}
}

func TestFacetCache_NonPositiveTTLSkipsWrite(t *testing.T) {
	cache, mr := newTestCache(t)

	if err := cache.Set(context.Background(), sampleFacets(), 0, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if mr.Exists(rediscache.DefaultKey) {
		t.Fatal("expected no key to be written")
	}
}

func TestFacetCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, sampleFacets(), 0, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := cache.Get(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected miss after invalidate, got %v", err)
	}
}

func TestFacetCache_StaleGenerationSkipsWrite(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	gen, err := cache.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if gen != 0 {
		t.Fatalf("expected generation 0 on a fresh cache, got %d", gen)
	}

	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	next, err := cache.Generation(ctx)
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if next != gen+1 {
		t.Fatalf("expected generation %d after invalidate, got %d", gen+1, next)
	}

	if err := cache.Set(ctx, sampleFacets(), gen, time.Minute); err != nil {
		t.Fatalf("Set with stale generation: %v", err)
	}
	if mr.Exists(rediscache.DefaultKey) {
		t.Fatal("snapshot computed before the invalidation must not be cached")
	}

	if err := cache.Set(ctx, sampleFacets(), next, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("expected a hit with the current generation, got %v", err)
	}
}

func TestFacetCache_ServerDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	_, err := cache.Get(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
