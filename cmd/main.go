package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/NgigiN/gigledger/internal/api"
	"github.com/NgigiN/gigledger/internal/config"
	"github.com/NgigiN/gigledger/internal/discord"
	"github.com/NgigiN/gigledger/internal/notify"
	"github.com/NgigiN/gigledger/internal/storage"
	"github.com/NgigiN/gigledger/internal/tracker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("gigledger stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize the database: %w", err)
	}
	defer db.Close()

	// The bot needs the tracker, so alerts reach it through relay once it
	// exists.
	sinks := notify.Multi{notify.NewLog(logger)}
	var bot *discord.Bot
	var relay notify.Func = func(title, body, key string) {
		if bot != nil {
			bot.Notify(title, body, key)
		}
	}
	if cfg.DiscordEnabled() {
		sinks = append(sinks, relay)
	}
	notifier := notify.NewDedupe(sinks, cfg.DedupeWindow)

	t, err := tracker.New(ctx, db,
		tracker.WithLogger(logger),
		tracker.WithNotifier(notifier),
		tracker.WithLocation(cfg.Location),
	)
	if err != nil {
		return fmt.Errorf("failed to start tracker: %w", err)
	}

	var apiOpts []api.Option
	apiOpts = append(apiOpts, api.WithLogger(logger))
	if cfg.DiscordEnabled() {
		if bot, err = discord.NewBot(cfg, t, logger); err != nil {
			return fmt.Errorf("failed to initialize the discord bot: %w", err)
		}
		if err := bot.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}
		defer bot.Stop()
		apiOpts = append(apiOpts, api.WithProbe("discord", bot.Connected))
		logger.Info("discord bot connected", "channel", cfg.DiscordChannelId)
	}

	if n, err := t.ResumeSettlements(ctx); err != nil {
		logger.Error("resuming settlements", "error", err)
	} else if n > 0 {
		logger.Info("settlements resumed", "count", n)
	}

	go checkLoop(ctx, t, cfg.CheckInterval, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.New(t, apiOpts...).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// checkLoop runs the silent system checks once at startup and then on every
// tick until ctx is done.
func checkLoop(ctx context.Context, t *tracker.Tracker, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		report, err := t.RunChecks(ctx, true)
		if err != nil {
			logger.Error("scheduled check failed", "error", err)
		} else {
			logger.Debug("scheduled check finished", "alerts", len(report.Alerts), "recurring", report.Emitted)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
