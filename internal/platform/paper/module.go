package paper

import (
	"go.uber.org/fx"

	"orb_bot/internal/engine"
	"orb_bot/internal/platform"
)

func Module() fx.Option {
	return fx.Module("paper",
		fx.Provide(
			New, // platform.Platform
			func(p platform.Platform) platform.MarketData { return p },
			func(p platform.Platform) platform.Account { return p },
			func(p platform.Platform) platform.Calendar { return p },
			func(p platform.Platform) engine.Exec { return p },
		),
	)
}
