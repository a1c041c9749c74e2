package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	klog "github.com/thisdk/komari-sub001/cmd/komari/log"
	"github.com/thisdk/komari-sub001/internal/bot"
	"github.com/thisdk/komari-sub001/internal/config"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/remote/discord"
	"github.com/thisdk/komari-sub001/internal/remote/telegram"
	"github.com/thisdk/komari-sub001/internal/server"
)

const eventQueueSize = 64

func main() {
	configPath := flag.String("config", "config/komari.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %s\n", err.Error())
		os.Exit(1)
	}

	logger, err := klog.NewLoggerWithLevel(cfg.Settings.LogLevel, cfg.Settings.Debug, cfg.Settings.LogDir, cfg.Settings.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %s\n", err.Error())
		os.Exit(1)
	}
	defer klog.FlushAndClose()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, *configPath, cfg, logger); err != nil {
		logger.Error("Komari stopped with an error", slog.Any("error", err))
		klog.FlushLog()
		os.Exit(1)
	}
	logger.Info("Komari stopped")
}

// run wires the tick loop to its collaborators. Perception and input run dry: the detector
// finds nothing and input events are only logged.
func run(ctx context.Context, configPath string, cfg config.Config, logger *slog.Logger) error {
	events := event.NewListener(logger, eventQueueSize)
	updates := make(chan config.Config, 1)

	b, err := bot.NewBot(bot.Options{
		Config:   cfg,
		Detector: game.NullDetector{},
		Input:    game.LogInput{Logger: logger},
		Minimap:  &bot.StaticMinimap{Value: cfg.StaticMinimap()},
		Rotator:  bot.NewIntervalRotator(cfg.Rotation, cfg.TickInterval()),
		Events:   events,
		Logger:   logger,
		Updates:  updates,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if d := cfg.Notifications.Discord; d.Enabled {
		notifier, err := discord.NewNotifier(d.Token, d.ChannelID)
		if err != nil {
			return err
		}
		events.Register(notifier.Handle)
		logger.Info("Discord notifications enabled")
	}

	if tg := cfg.Notifications.Telegram; tg.Enabled {
		tb, err := telegram.New(tg.Token, tg.ChatID, b, logger)
		if err != nil {
			return err
		}
		events.Register(tb.Handle)
		g.Go(func() error {
			return tb.Run(ctx)
		})
		logger.Info("Telegram notifications enabled")
	}

	if cfg.Telemetry.Enabled {
		srv := server.New(cfg.Telemetry.Addr, b, logger)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	g.Go(func() error {
		return config.NewWatcher(configPath, logger).Run(ctx, updates)
	})
	g.Go(func() error {
		return b.Run(ctx)
	})

	return g.Wait()
}
