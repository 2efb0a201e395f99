package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls  int
	result *Result
	err    error
}

func (f *countingFetcher) Fetch(_ context.Context, urlStr string) (*Result, error) {
	f.calls++
	if f.err != nil {
		return f.result, f.err
	}
	r := *f.result
	r.URL = urlStr
	return &r, nil
}

func newTestCache(t *testing.T, next Fetcher) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, next, RedisCacheOptions{TTL: time.Hour}), mr
}

func TestRedisCache_HitAfterMiss(t *testing.T) {
	next := &countingFetcher{result: &Result{HTML: "<p>hi</p>", StatusCode: 200}}
	cache, _ := newTestCache(t, next)
	ctx := context.Background()

	first, err := cache.Fetch(ctx, "https://acme.example")
	require.NoError(t, err)
	second, err := cache.Fetch(ctx, "https://acme.example")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first, second)
}

func TestRedisCache_Expires(t *testing.T) {
	next := &countingFetcher{result: &Result{HTML: "x", StatusCode: 200}}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, "https://acme.example")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	_, err = cache.Fetch(ctx, "https://acme.example")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestRedisCache_ErrorsNotCached(t *testing.T) {
	next := &countingFetcher{err: errors.New("boom")}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, "https://down.example")
	require.Error(t, err)
	_, err = cache.Fetch(ctx, "https://down.example")
	require.Error(t, err)

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, mr.Keys())
}

func TestRedisCache_RedisDownFallsThrough(t *testing.T) {
	next := &countingFetcher{result: &Result{HTML: "x", StatusCode: 200}}
	cache, mr := newTestCache(t, next)
	mr.Close()

	result, err := cache.Fetch(context.Background(), "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "x", result.HTML)
}

func TestRedisCache_Invalidate(t *testing.T) {
	next := &countingFetcher{result: &Result{HTML: "x", StatusCode: 200}}
	cache, mr := newTestCache(t, next)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, "https://acme.example")
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 1)

	require.NoError(t, cache.Invalidate(ctx, "https://acme.example"))
	assert.Empty(t, mr.Keys())
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}
