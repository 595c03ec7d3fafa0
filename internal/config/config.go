package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	DBPath   string
	HTTPAddr string

	// The bot runs only when both are set.
	DiscordBotToken  string
	DiscordChannelId string

	CheckInterval time.Duration
	DedupeWindow  time.Duration
	Location      *time.Location
	LogLevel      slog.Level
}

func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != ""
}

func Load() (*Config, error) {
	cfg := &Config{
		DBPath:           env("DB_PATH", "data/gigledger.db"),
		HTTPAddr:         env("HTTP_ADDR", ":8080"),
		DiscordBotToken:  os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordChannelId: os.Getenv("DISCORD_CHANNEL_ID"),
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordChannelId == "" {
		return nil, fmt.Errorf("Channel ID is not set")
	}
	if cfg.DiscordBotToken == "" && cfg.DiscordChannelId != "" {
		return nil, fmt.Errorf("Bot token is not set")
	}

	var err error
	if cfg.CheckInterval, err = duration("CHECK_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.DedupeWindow, err = duration("NOTIFY_DEDUPE_WINDOW", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Location, err = time.LoadLocation(env("TZ_NAME", "UTC")); err != nil {
		return nil, fmt.Errorf("invalid TZ_NAME: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(env("LOG_LEVEL", "info")))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
