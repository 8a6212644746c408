package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"taskhub/internal/logger"
)

// ErrNotListable is returned when a backend cannot enumerate its keys.
var ErrNotListable = errors.New("backend cannot enumerate keys")

// MigrateReport summarizes a Migrate run.
type MigrateReport struct {
	Scanned  int
	Upgraded int
	Skipped  int
}

// Migrate rewrites every stored board blob in the current layout.
// Blobs that cannot be decoded are left in place and counted as skipped.
func Migrate(ctx context.Context, backend Backend) (MigrateReport, error) {
	var report MigrateReport

	lister, ok := backend.(Lister)
	if !ok {
		return report, ErrNotListable
	}

	keys, err := lister.Keys(ctx)
	if err != nil {
		return report, fmt.Errorf("list keys: %w", err)
	}

	for _, key := range keys {
		if key != StateKey && !strings.HasSuffix(key, "/"+StateKey) {
			continue
		}
		report.Scanned++

		data, found, err := backend.Get(ctx, key)
		if err != nil {
			return report, fmt.Errorf("read %s: %w", key, err)
		}
		if !found {
			continue
		}

		if current, _ := isCurrent(data); current {
			continue
		}

		st, err := Decode(data)
		if err != nil {
			logger.Warn(ctx, "skipping unreadable session state", "key", key, "err", err)
			report.Skipped++
			continue
		}

		out, err := Encode(st)
		if err != nil {
			return report, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := backend.Set(ctx, key, out); err != nil {
			return report, fmt.Errorf("write %s: %w", key, err)
		}
		report.Upgraded++
	}

	return report, nil
}

func isCurrent(data []byte) (bool, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false, err
	}
	return probe.Version == CurrentVersion, nil
}
