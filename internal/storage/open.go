package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Driver     string
	SQLitePath string
	CacheBytes int64
	TTL        time.Duration
	NATSURL    string
	NATSBucket string
}

// ClosableBackend is a Backend holding resources.
type ClosableBackend interface {
	Backend
	Close() error
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (ClosableBackend, error) {
	switch opts.Driver {
	case "memory":
		return NewMemoryBackend(), nil
	case "sqlite":
		if dir := filepath.Dir(opts.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		return NewSQLiteBackend(ctx, opts.SQLitePath)
	case "ristretto":
		return NewCacheBackend(opts.CacheBytes, opts.TTL)
	case "nats":
		return DialKVBackend(ctx, opts.NATSURL, opts.NATSBucket, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
