package scanner

import (
	"go.uber.org/fx"

	"orb_bot/internal/config"
	"orb_bot/internal/indicator"
)

func Module() fx.Option {
	return fx.Module("scanner",
		fx.Provide(
			func(cfg *config.Settings) *indicator.Store {
				return indicator.NewStore(cfg.IndicatorPeriod)
			},
			New, // *Scanner
		),
	)
}
