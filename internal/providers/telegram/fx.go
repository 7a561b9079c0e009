package telegram

import (
	"time"

	"github.com/ferrolab/certline/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.telegram",
	fx.Provide(NewFromConfig),
)

// NewFromConfig builds the bot provider when a token is configured and a
// noop provider otherwise, so notification dispatch is always wired.
func NewFromConfig(cfg config.Config) Provider {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return &NoOpProvider{}
	}
	return NewBot(Config{
		BotToken: cfg.Telegram.BotToken,
		ChatID:   cfg.Telegram.ChatID,
		Timeout:  time.Duration(cfg.Telegram.Timeout) * time.Second,
	})
}
