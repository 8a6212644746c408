package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrRejected is returned when the cache drops a write under memory pressure.
var ErrRejected = errors.New("cache rejected the value")

// CacheBackend keeps session blobs in an in-process ristretto cache.
// Entries expire after ttl; zero keeps them until evicted.
type CacheBackend struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// NewCacheBackend creates a cache bounded to maxCostBytes of stored values.
func NewCacheBackend(maxCostBytes int64, ttl time.Duration) (*CacheBackend, error) {
	counters := maxCostBytes / 100 * 10 // ~10x expected items
	if counters < 1000 {
		counters = 1000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: counters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CacheBackend{c: c, ttl: ttl}, nil
}

func (b *CacheBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := b.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

// Set waits for the write to be applied so a following Get observes it.
func (b *CacheBackend) Set(_ context.Context, key string, value []byte) error {
	v := append([]byte(nil), value...)
	if !b.c.SetWithTTL(key, v, int64(len(v)), b.ttl) {
		return ErrRejected
	}
	b.c.Wait()
	return nil
}

func (b *CacheBackend) Delete(_ context.Context, key string) error {
	b.c.Del(key)
	return nil
}

func (b *CacheBackend) Close() error {
	b.c.Close()
	return nil
}
