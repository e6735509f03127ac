package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"spesebot/internal/amqp"
	"spesebot/internal/backend"
	"spesebot/internal/cache"
	"spesebot/internal/cli"
	applog "spesebot/internal/log"
	"spesebot/internal/worker"
)

const seenCleanupInterval = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	cfg, cfgErr := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker, os.Stdout)
	if cfgErr != nil {
		cli.Fatal(logger, "Configuration validation failed", cfgErr)
	}
	if !cfg.EventsEnabled() {
		cli.Fatal(logger, "Worker needs an event stream", errors.New("AMQP_URL is not set"))
	}

	logger.Info("Starting spesebot-worker", "queue", cfg.AMQPQueue)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	factory := backend.NewFactory(logger.Logger.With(applog.FieldComponent, applog.ComponentBackend))
	journals, closeJournals, err := factory.CreateJournals(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open journals", err)
	}
	defer func() {
		if err := closeJournals(); err != nil {
			logger.Error("Failed to close journals", applog.FieldError, err)
		}
	}()

	w := worker.NewJournalWorker()
	for _, j := range journals {
		w.AddJournal(j.Name, j.Writer)
		logger.Info("Journal enabled", "journal", j.Name)
	}

	caches := cache.NewManager(logger.Logger)
	caches.Register("seen_events", w.Seen())
	caches.StartCleanup(seenCleanupInterval)
	defer caches.Stop()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		return 1
	}
	defer amqpClient.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExpenseRecorded(gctx, w.HandleExpenseRecorded)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		return 1
	}
	logger.Info("Worker shutdown complete")
	return 0
}
