package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// bucket is the part of jetstream.KeyValue the backend needs.
type bucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string, opts ...jetstream.KVDeleteOpt) error
}

// KVBackend stores session blobs in a NATS JetStream key-value bucket.
// Expiry is configured on the bucket.
type KVBackend struct {
	kv bucket
	nc *nats.Conn
}

// NewKVBackend wraps an existing bucket.
func NewKVBackend(kv jetstream.KeyValue) *KVBackend {
	return &KVBackend{kv: kv}
}

// DialKVBackend connects to url and creates or updates the bucket.
func DialKVBackend(ctx context.Context, url, bucketName string, ttl time.Duration) (*KVBackend, error) {
	nc, err := nats.Connect(url, nats.Name("taskhub"))
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucketName,
		Description: "taskhub session state",
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("kv bucket %s: %w", bucketName, err)
	}

	return &KVBackend{kv: kv, nc: nc}, nil
}

// NATS KV keys may not contain '/', so session separators are mapped to '.'.
func kvKey(key string) string {
	return strings.ReplaceAll(key, "/", ".")
}

func (b *KVBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := b.kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

func (b *KVBackend) Set(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, kvKey(key), value)
	return err
}

func (b *KVBackend) Delete(ctx context.Context, key string) error {
	err := b.kv.Delete(ctx, kvKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *KVBackend) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}
