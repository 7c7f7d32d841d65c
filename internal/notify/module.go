package notify

import (
	"go.uber.org/fx"

	"orb_bot/internal/config"
	"orb_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			func(cfg *config.Settings) Notifier {
				if cfg.Telegram.Token == "" {
					return Noop{}
				}
				t, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
				if err != nil {
					logger.Error("telegram init: %v, falling back to noop", err)
					return Noop{}
				}
				return t
			},
		),
	)
}
