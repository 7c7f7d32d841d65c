package main

import (
	"log"

	"go.uber.org/fx"

	"orb_bot/internal/config"
	"orb_bot/internal/engine"
	"orb_bot/internal/notify"
	"orb_bot/internal/platform/paper"
	"orb_bot/internal/runner"
	"orb_bot/internal/scanner"
	"orb_bot/internal/session"
	"orb_bot/internal/sizer"
	"orb_bot/pkg/logger"
	"orb_bot/pkg/tracing"
)

func main() {
	logger.SetServiceName("orb_bot")
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	cfg, err := config.NewSettings()
	if err != nil {
		logger.Fatal("config: %v", err)
	}

	tracing.SetServiceName("orb_bot")
	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	if err != nil {
		logger.Error("tracing disabled: %v", err)
	} else {
		defer closeTracer()
	}

	app := fx.New(
		fx.Provide(func() *config.Settings { return cfg }),
		paper.Module(),
		scanner.Module(),
		sizer.Module(),
		notify.Module(),
		engine.Module(),
		session.Module(),
		runner.Module(),
	)
	app.Run()
}
