// Command seed fills a database with a demo social graph.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"kindred/internal/config"
	"kindred/internal/database"
	"kindred/internal/observability"
	"kindred/internal/seed"

	"github.com/joho/godotenv"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	profiles := flag.Int("profiles", seed.DefaultOptions.Profiles, "number of profiles to create")
	posts := flag.Int("posts", seed.DefaultOptions.PostsPerProfile, "posts per profile")
	randSeed := flag.Int64("seed", 0, "faker seed, 0 for random")
	clean := flag.Bool("clean", false, "delete existing rows before seeding")
	dryRun := flag.Bool("dry-run", false, "seed an in-memory SQLite database instead of the configured one")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	var db *gorm.DB
	if *dryRun {
		db, err = gorm.Open(sqlite.Open(":memory:"), database.GormConfig(logger))
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	} else {
		db, err = database.Connect(cfg, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if *clean {
		if err := seed.Clear(db); err != nil {
			return err
		}
		logger.Info("existing data cleared")
	}

	report, err := seed.NewSeeder(db, logger, *randSeed).Run(context.Background(), seed.Options{
		Profiles:        *profiles,
		PostsPerProfile: *posts,
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	logger.Info("seeded",
		slog.Bool("dry_run", *dryRun),
		slog.Int("profiles", report.Profiles),
		slog.Int("follows", report.Follows),
		slog.Int("friendships", report.Friendships),
		slog.Int("kinships", report.Kinships),
		slog.Int("posts", report.Posts),
		slog.Int("comments", report.Comments),
		slog.Int("reactions", report.Reactions),
		slog.Int("conversations", report.Conversations),
		slog.Int("messages", report.Messages),
	)
	return nil
}
