package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	"taskhub/internal/config"
	"taskhub/internal/logger"
	"taskhub/internal/storage"
)

func main() {
	if err := run(context.Background()); err != nil {
		os.Exit(1)
	}
}

// run returns after cleanup so main can exit non-zero on failure.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx, err, "failed to load config")
		return err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.Info(ctx, "starting telegram bot", "storage", cfg.Storage.Driver)

	if cfg.Telegram.Token == "" {
		err := errors.New("missing token")
		logger.Error(ctx, err, "set TASKHUB_TELEGRAM_TOKEN or telegram.token")
		return err
	}

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
		return err
	}
	defer backend.Close()

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Error(ctx, err, "failed to create bot")
		return err
	}
	api.Debug = cfg.Telegram.Debug
	logger.Info(ctx, "authorized", "user", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		logger.Error(ctx, err, "failed to get updates")
		return err
	}

	bot := NewBot(api, backend)
	defer bot.Close(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logger.Info(ctx, "bot is listening")
	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			go bot.handleMessage(update.Message)
		case <-stop:
			api.StopReceivingUpdates()
			logger.Info(ctx, "shutting down")
			return nil
		}
	}
}
