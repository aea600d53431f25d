package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/api"
	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/internal/scheduler"
	"github.com/user/contestcal/internal/sources"
	"github.com/user/contestcal/internal/storage"
	"github.com/user/contestcal/internal/telegram"
	"github.com/user/contestcal/pkg/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Try to initialize basic logger for error output
		logger.Init("debug", "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Msg("Starting contest calendar")

	// Initialize database
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	store := storage.NewStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	agg := aggregator.New(sources.New(cfg.Sources, nil), store)

	// Calendar is optional; without credentials booking reports EXTERNAL_FAILURE
	cal, err := calendar.Open(context.Background(), cfg.Calendar)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize calendar client")
	}

	engine := booking.NewEngine(store, cal,
		booking.WithDefaultReminders(cfg.Sync.DefaultReminders),
		booking.WithPurgeOnDelete(cfg.Sync.PurgeMappingOnDelete),
	)

	// Start scheduler if enabled
	var sched *scheduler.Scheduler
	if cfg.Aggregation.Enabled {
		sched, err = scheduler.New(cfg.Aggregation, agg)
		if err != nil {
			logger.Fatal().Err(err).Str("cron", cfg.Aggregation.Cron).Msg("Invalid aggregation schedule")
		}
		sched.Start()
	}

	// Start Telegram bot if configured
	var bot *telegram.Bot
	if cfg.Telegram.Token != "" {
		bot, err = telegram.NewBot(cfg.Telegram, telegram.Deps{
			Contests:  store,
			Refresher: agg,
			Booker:    engine,
			DaysAhead: cfg.Aggregation.DaysAhead,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
		}
		bot.Start()
	} else {
		logger.Info().Msg("No Telegram token configured, bot disabled")
	}

	// Start HTTP server
	handler := api.NewHandler(store, agg, engine, cfg.DaysAhead())
	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: api.NewRouter(handler),
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if bot != nil {
		bot.Stop()
	}

	logger.Info().Msg("Shutdown complete")
}
