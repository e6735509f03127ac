package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"spesebot/internal/adapters"
	"spesebot/internal/amqp"
	"spesebot/internal/backend"
	"spesebot/internal/bot"
	"spesebot/internal/cli"
	apphttp "spesebot/internal/http"
	applog "spesebot/internal/log"
	"spesebot/internal/records"
	"spesebot/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	cfg, cfgErr := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp, os.Stdout)
	if cfgErr != nil {
		cli.Fatal(logger, "Configuration validation failed", cfgErr)
	}

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to load bot timezone", err, "timezone", cfg.BotTimezone)
	}
	ingestMode, _ := services.ParseMode(cfg.IngestMode)
	rankingMode, _ := services.ParseRankingMode(cfg.RankingMode)
	monthWindow, _ := bot.ParseMonthWindow(cfg.MonthWindow)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	storeLogger := logger.Logger.With(applog.FieldComponent, applog.ComponentBackend)
	res, err := backend.NewFactory(storeLogger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Error("Failed to close data backend", applog.FieldError, err)
		}
	}()

	if ingestMode == services.ModeAccumulate && !backendCfg.Type.Versioned() {
		logger.Warn("Accumulate mode without conditional updates: concurrent writers may lose entries",
			"backend", backendCfg.Type.String())
	}

	var store records.Store = services.Guard(res.Store, cfg.StoreTimeout)

	if cfg.EventsEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Expense events disabled: AMQP unavailable", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			store = adapters.NewPublishingStore(store, amqpClient)
			logger.Info("Publishing expense events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	today := bot.TodayIn(loc, time.Now)
	chat := bot.New(
		services.NewIngestor(store, ingestMode, today),
		services.NewAggregator(store),
		services.NewRanker(store, rankingMode, today),
		bot.Options{
			MonthWindow:          monthWindow,
			SuggestionWindowDays: cfg.SuggestionWindowDays,
			SuggestionCount:      cfg.SuggestionCount,
			CurrencySuffix:       cfg.CurrencySuffix,
			Today:                today,
		},
	)

	srv := apphttp.NewServer(":"+cfg.Port, chat, apphttp.Options{
		WebhookSecret:      cfg.WebhookSecret,
		RateLimitPerMinute: cfg.WebhookRateLimit,
		ReplyTimeout:       cfg.ReplyTimeout,
		Logger:             logger,
		Ready:              res.Ready,
	})

	// Configure server timeouts and limits; WriteTimeout follows ReplyTimeout
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spesebot",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"ingest_mode", string(ingestMode),
			"ranking_mode", string(rankingMode),
			"month_window", string(monthWindow),
			"timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return 1
	}
	logger.Info("Server stopped gracefully")
	return 0
}
