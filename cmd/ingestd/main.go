package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"matchrank/internal/client"
	"matchrank/internal/config"
	"matchrank/internal/league"
	"matchrank/internal/parser"
	"matchrank/internal/repository"
	"matchrank/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting match ingestion worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("start_date", cfg.IngestStartDate).
		Int("window_days", cfg.BatchWindowDays).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize database connection
	dbConfig := repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}
	log.Info().Msg("Database connection established")

	// Initialize upstream feed client
	feedClient := client.NewClient(
		cfg.FeedBaseURL,
		cfg.FeedAPIToken,
		cfg.FeedConnectTimeout,
		cfg.FeedRequestTimeout,
	)
	log.Info().Str("base_url", cfg.FeedBaseURL).Msg("Feed client initialized")

	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort), db)
	}

	mapper := league.NewMapper()
	ingestor := parser.New(db.Matches)
	sched := scheduler.New(feedClient, ingestor, scheduler.Options{
		Competitions:     mapper.AllCodes(),
		WindowDays:       cfg.BatchWindowDays,
		CompetitionDelay: cfg.CompetitionDelay,
		FetchWait:        cfg.FetchWaitTimeout,
	})

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		sched.Stop()
		cancel()
	}()

	go logSchedulerEvents(ctx, sched.Events())

	// Initial run covers the configured start date through today. Records
	// already stored from earlier runs are skipped, so restarts are cheap.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	summary, err := sched.Run(ctx, cfg.StartDate(), today)
	if err != nil {
		log.Error().Err(err).Msg("Ingestion run failed")
	} else {
		log.Info().
			Int("windows", summary.Windows).
			Int("inserted", summary.Inserted).
			Int("skipped", summary.Skipped).
			Int("errored", summary.Errored).
			Bool("stopped", summary.Stopped).
			Msg("Initial ingestion run finished")
	}

	if !cfg.NightlyCatchUp {
		log.Info().Msg("Nightly catch-up disabled, worker exiting")
		return
	}

	// Nightly catch-up re-ingests a small trailing window so late score
	// corrections and postponed fixtures land without a full backfill.
	c := cron.New()
	_, err = c.AddFunc(cfg.CatchUpCron, func() {
		runCatchUp(ctx, cfg, db, feedClient, ingestor, mapper)
	})
	if err != nil {
		log.Fatal().Err(err).Str("cron", cfg.CatchUpCron).Msg("Invalid catch-up schedule")
	}
	c.Start()
	log.Info().Str("cron", cfg.CatchUpCron).Msg("Nightly catch-up scheduled")

	<-ctx.Done()

	cronCtx := c.Stop()
	<-cronCtx.Done()
	log.Info().Msg("Worker shutdown complete")
}

// runCatchUp ingests from the latest stored match date (minus the configured
// lookback) through today.
func runCatchUp(ctx context.Context, cfg *config.Config, db *repository.Database, feedClient *client.Client, ingestor *parser.Parser, mapper *league.Mapper) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	start := cfg.StartDate()
	latest, err := db.Matches.LatestDate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Catch-up could not determine latest stored date, using configured start")
	} else if !latest.IsZero() {
		start = latest.AddDate(0, 0, -cfg.CatchUpLookback)
	}
	if start.After(today) {
		start = today
	}

	log.Info().Time("from", start).Time("to", today).Msg("Nightly catch-up starting")

	sched := scheduler.New(feedClient, ingestor, scheduler.Options{
		Competitions:     mapper.AllCodes(),
		WindowDays:       cfg.BatchWindowDays,
		CompetitionDelay: cfg.CompetitionDelay,
		FetchWait:        cfg.FetchWaitTimeout,
	})
	summary, err := sched.Run(ctx, start, today)
	if err != nil {
		log.Error().Err(err).Msg("Nightly catch-up failed")
		return
	}
	log.Info().
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("errored", summary.Errored).
		Msg("Nightly catch-up finished")
}

// logSchedulerEvents drains advisory progress events into the log.
func logSchedulerEvents(ctx context.Context, events <-chan scheduler.Event) {
	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case scheduler.EventCompetitionDone:
				log.Debug().
					Str("competition", ev.Competition).
					Str("outcome", string(ev.Outcome)).
					Int("inserted", ev.Inserted).
					Msg("Competition processed")
			case scheduler.EventWindowDone:
				log.Debug().
					Time("from", ev.Window.From).
					Time("to", ev.Window.To).
					Msg("Window processed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string, db *repository.Database) {
	http.Handle("/metrics", promhttp.Handler())

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
