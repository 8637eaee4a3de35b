// Command migrate applies the schema to the configured database.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"

	"kindred/internal/config"
	"kindred/internal/database"
	"kindred/internal/observability"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	list := flag.Bool("list", false, "print the managed tables and exit")
	flag.Parse()

	if *list {
		for _, m := range database.PersistentModels() {
			fmt.Printf("%T\n", m)
		}
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("schema applied", slog.Int("models", len(database.PersistentModels())))
	return nil
}
