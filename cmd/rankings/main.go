package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"matchrank/internal/cache"
	"matchrank/internal/config"
	"matchrank/internal/league"
	"matchrank/internal/registry"
	"matchrank/internal/replay"
	"matchrank/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	leagueName := flag.String("league", "Premier League", "league display name to rank")
	flag.Parse()

	setupLogger()

	cfg := config.MustLoad()

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

	rankingCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.RankingsTTL)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		rankingCache = nil
	} else {
		defer rankingCache.Close()
	}

	mapper := league.NewMapper()
	rebuilder := replay.New(db.Matches, registry.New(mapper), mapper)

	var eloRows []replay.EloRow
	var skillRows []replay.SkillRow

	cached := rankingCache != nil &&
		rankingCache.GetRankings(ctx, "elo", *leagueName, &eloRows) &&
		rankingCache.GetRankings(ctx, "skill", *leagueName, &skillRows)

	if !cached {
		summary, err := rebuilder.RebuildLeague(ctx, *leagueName)
		if err != nil {
			log.Fatal().Err(err).Msg("Rebuild failed")
		}
		log.Info().
			Int("matches", summary.Matches).
			Int("teams", summary.Teams).
			Msg("Ratings rebuilt from stored matches")

		eloRows = rebuilder.EloRows(*leagueName)
		skillRows = rebuilder.SkillRows(*leagueName)

		if rankingCache != nil {
			rankingCache.SetRankings(ctx, "elo", *leagueName, eloRows)
			rankingCache.SetRankings(ctx, "skill", *leagueName, skillRows)
		}
	}

	printElo(*leagueName, eloRows)
	fmt.Println()
	printSkill(*leagueName, skillRows)
}

func printElo(leagueName string, rows []replay.EloRow) {
	fmt.Printf("%s - Elo rankings\n", leagueName)
	fmt.Printf("%-4s %-28s %8s %8s\n", "#", "Team", "Elo", "Matches")
	for i, row := range rows {
		fmt.Printf("%-4d %-28s %8.1f %8d\n", i+1, row.Team, row.Elo, row.MatchCount)
	}
}

func printSkill(leagueName string, rows []replay.SkillRow) {
	fmt.Printf("%s - Skill rankings\n", leagueName)
	fmt.Printf("%-4s %-28s %8s %10s %8s\n", "#", "Team", "Score", "Stability", "Matches")
	for i, row := range rows {
		fmt.Printf("%-4d %-28s %8d %9d%% %8d\n", i+1, row.Team, row.Score, row.Stability, row.MatchCount)
	}
}

func setupLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	level := zerolog.WarnLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}
