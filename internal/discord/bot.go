package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/NgigiN/gigledger/internal/config"
	"github.com/NgigiN/gigledger/internal/tracker"
)

// Bot answers commands and quick entries in one channel and relays alerts
// to it.
type Bot struct {
	session   *discordgo.Session
	tracker   *tracker.Tracker
	channelID string
	logger    *slog.Logger
	ctx       context.Context
}

func NewBot(cfg *config.Config, t *tracker.Tracker, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	bot := newBot(t, cfg.DiscordChannelId, logger)
	bot.session = session

	session.AddHandler(bot.handleMessage)
	session.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentMessageContent

	return bot, nil
}

func newBot(t *tracker.Tracker, channelID string, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		tracker:   t,
		channelID: channelID,
		logger:    logger.With("component", "discord"),
		ctx:       context.Background(),
	}
}

// Start opens the gateway connection. Commands run under ctx.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.logger.Warn("closing discord session", "error", err)
	}
}

// Connected reports whether the gateway handshake has completed.
func (b *Bot) Connected() bool {
	return b.session != nil && b.session.DataReady
}

// Notify posts an alert to the channel.
func (b *Bot) Notify(title, body, dedupeKey string) {
	if b.session == nil {
		return
	}
	if _, err := b.session.ChannelMessageSend(b.channelID, formatAlert(title, body)); err != nil {
		b.logger.Error("failed to send alert", "key", dedupeKey, "error", err)
	}
}

func formatAlert(title, body string) string {
	return fmt.Sprintf("🔔 **%s**\n%s", title, body)
}

func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}
	if m.ChannelID != b.channelID {
		return
	}

	reply := b.respond(b.ctx, m.Content)
	if reply == "" {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		b.logger.Error("failed to send reply", "error", err)
	}
}

// respond produces the reply for one message; empty means stay quiet.
func (b *Bot) respond(ctx context.Context, content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if strings.HasPrefix(content, "!") {
		return b.command(ctx, strings.Fields(content))
	}
	return b.record(ctx, content)
}
