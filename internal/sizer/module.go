package sizer

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("sizer",
		fx.Provide(
			New, // *Sizer
		),
	)
}
