// Package telegram implements the MessageSource port with a long-polling
// Telegram bot. Each incoming message is matched against the static
// chat-id -> channel-tag map; messages from unmapped chats are dropped here
// and never reach the parser or the engine.
package telegram

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mt5SignalBot/internal/domain"
	"mt5SignalBot/internal/ports"
)

// Config for the listener.
type Config struct {
	// Token of the Telegram bot.
	Token string
	// ChannelMap maps chat ids to channel tags. Loaded once at startup and
	// never mutated afterwards.
	ChannelMap map[int64]domain.ChannelTag
	// Logger is required.
	Logger ports.Logger
	// UpdateTimeout for long polling, in seconds.
	UpdateTimeout int
}

// Listener streams signal-channel messages into a handler.
type Listener struct {
	cfg    Config
	logger ports.Logger
	bot    *tgbot.BotAPI
}

// New creates the listener and authenticates the bot.
func New(cfg Config) (*Listener, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: telegram token must be set", ports.ErrConfigurationErr)
	}
	if len(cfg.ChannelMap) == 0 {
		return nil, fmt.Errorf("%w: channel map must not be empty", ports.ErrConfigurationErr)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: listener needs a logger", ports.ErrMissingDependency)
	}
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = 30
	}

	bot, err := tgbot.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth failed: %w", err)
	}

	return &Listener{cfg: cfg, logger: cfg.Logger, bot: bot}, nil
}

// Listen blocks consuming updates until the context is cancelled. Every
// message from a mapped chat is handed to the handler together with its
// channel tag.
func (l *Listener) Listen(ctx context.Context, handler ports.MessageHandler) error {
	u := tgbot.NewUpdate(0)
	u.Timeout = l.cfg.UpdateTimeout
	updates := l.bot.GetUpdatesChan(u)

	l.logger.Info(ctx, "listening for signal messages", map[string]interface{}{
		"channels": len(l.cfg.ChannelMap),
	})

	for {
		select {
		case <-ctx.Done():
			l.bot.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Text == "" {
				continue
			}

			tag, mapped := l.cfg.ChannelMap[msg.Chat.ID]
			if !mapped {
				l.logger.Warn(ctx, "message from unmapped chat dropped", map[string]interface{}{
					"chat": msg.Chat.ID,
				})
				continue
			}

			l.logger.Info(ctx, "message received", map[string]interface{}{
				"chat": msg.Chat.ID,
				"tag":  tag,
			})
			handler(ctx, msg.Text, tag)
		}
	}
}
