package runner

import (
	"context"

	"go.uber.org/fx"

	"orb_bot/internal/session"
	"orb_bot/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(New),
		fx.Invoke(run),
	)
}

func run(lc fx.Lifecycle, r *Runner, ctrl *session.Controller, sd fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			phases := ctrl.Events(ctx)
			go func() {
				if err := r.Run(ctx, phases); err != nil && ctx.Err() == nil {
					logger.Error("runner: stopped: %v", err)
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
