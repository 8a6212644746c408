package main

import (
	"context"
	"flag"
	"os"

	"taskhub/internal/config"
	"taskhub/internal/logger"
	"taskhub/internal/storage"
)

func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", config.DefaultConfigFile, "Config file")
	dryRun := flag.Bool("dry-run", false, "Only report what would be upgraded")
	flag.Parse()

	cfg, err := config.LoadFrom(*cfgPath)
	if err != nil {
		logger.Error(ctx, err, "failed to load config")
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.Info(ctx, "migrating stored sessions", "storage", cfg.Storage.Driver, "version", storage.CurrentVersion)

	backend, err := storage.Open(ctx, storage.Options{
		Driver:     cfg.Storage.Driver,
		SQLitePath: cfg.Storage.SQLitePath,
		CacheBytes: cfg.Storage.CacheBytes,
		TTL:        cfg.Storage.TTL,
		NATSURL:    cfg.Storage.NATSURL,
		NATSBucket: cfg.Storage.NATSBucket,
	})
	if err != nil {
		logger.Error(ctx, err, "failed to open storage")
		os.Exit(1)
	}
	defer backend.Close()

	var target storage.Backend = backend
	if *dryRun {
		target = readOnly{backend}
	}

	report, err := storage.Migrate(ctx, target)
	if err != nil {
		logger.Error(ctx, err, "migration failed")
		backend.Close()
		os.Exit(1)
	}

	logger.Info(ctx, "migration finished",
		"scanned", report.Scanned,
		"upgraded", report.Upgraded,
		"skipped", report.Skipped,
		"dry_run", *dryRun,
	)
}

// readOnly drops writes so a dry run leaves storage untouched.
type readOnly struct {
	storage.ClosableBackend
}

func (readOnly) Set(context.Context, string, []byte) error { return nil }

func (r readOnly) Keys(ctx context.Context) ([]string, error) {
	l, ok := r.ClosableBackend.(storage.Lister)
	if !ok {
		return nil, storage.ErrNotListable
	}
	return l.Keys(ctx)
}
