package config

import (
	"log/slog"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DB_PATH", "HTTP_ADDR", "DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID",
		"CHECK_INTERVAL", "NOTIFY_DEDUPE_WINDOW", "TZ_NAME", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "data/gigledger.db" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.CheckInterval != time.Hour || cfg.DedupeWindow != 6*time.Hour {
		t.Fatalf("unexpected intervals %v %v", cfg.CheckInterval, cfg.DedupeWindow)
	}
	if cfg.Location != time.UTC || cfg.LogLevel != slog.LevelInfo || cfg.DiscordEnabled() {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_CHANNEL_ID", "123")
	t.Setenv("CHECK_INTERVAL", "15m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DiscordEnabled() || cfg.CheckInterval != 15*time.Minute || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"token without channel": {"DISCORD_BOT_TOKEN": "token"},
		"channel without token": {"DISCORD_CHANNEL_ID": "123"},
		"bad interval":          {"CHECK_INTERVAL": "soon"},
		"negative window":       {"NOTIFY_DEDUPE_WINDOW": "-1h"},
		"bad level":             {"LOG_LEVEL": "loud"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
