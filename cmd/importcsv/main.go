package main

import (
	"context"
	"flag"
	"os"
	"strconv"
	"time"

	"matchrank/internal/config"
	"matchrank/internal/csvimport"
	"matchrank/internal/league"
	"matchrank/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	filePath := flag.String("file", "", "path to a football-data.co.uk CSV export")
	code := flag.String("competition", "E0", "competition code to store the rows under")
	flag.Parse()

	setupLogger()

	if *filePath == "" {
		log.Fatal().Msg("-file is required")
	}

	cfg := config.MustLoad()

	mapper := league.NewMapper()
	if !mapper.ValidCode(*code) {
		log.Fatal().Str("competition", *code).Msg("Unknown competition code")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to open CSV file")
	}
	defer f.Close()

	importer := csvimport.New(db.Matches)
	result, err := importer.Import(ctx, f, *code)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	log.Info().
		Str("file", *filePath).
		Str("competition", *code).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("invalid", result.Invalid).
		Msg("Import complete")
}

func setupLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}
