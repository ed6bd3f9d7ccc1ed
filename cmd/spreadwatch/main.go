package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	appcontainer "spreadwatch/internal/application/container"
	"spreadwatch/internal/infrastructure/config"
	infracontainer "spreadwatch/internal/infrastructure/container"
	"spreadwatch/internal/infrastructure/logger"

	_ "spreadwatch/internal/infrastructure/exchange/bybit"
	_ "spreadwatch/internal/infrastructure/exchange/hyperliquid"

	"github.com/rs/zerolog/log"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inf, err := infracontainer.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init infrastructure failed")
	}
	defer inf.Close()

	app := appcontainer.New(cfg, inf)

	instruments := cfg.Instruments.List
	if cfg.Instruments.AutoDiscover {
		discovered, err := app.Resolver().Resolve(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("instrument discovery failed")
		}
		instruments = discovered
	}
	if len(instruments) == 0 {
		log.Fatal().Msg("no instruments to monitor")
	}

	svc := app.Monitor(instruments)

	log.Info().
		Str("config", *configPath).
		Int("instruments", len(instruments)).
		Str("price_mode", cfg.App.PriceMode).
		Float64("threshold_pct", cfg.Filter.ThresholdPct).
		Dur("poll_interval", cfg.PollInterval()).
		Msg("spreadwatch started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("monitor service exited")
	}
}
