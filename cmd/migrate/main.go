package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
)

func main() {
	statusOnly := flag.Bool("status", false, "Print the applied state of every migration without applying anything")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout for the migration run")
	flag.Parse()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Infow("Connecting to database", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)
	db, err := postgres.NewDB(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *statusOnly {
		if err := db.MigrationStatus(ctx); err != nil {
			logger.Fatalw("Failed to read migration status", "error", err)
		}
		return
	}

	logger.Info("Running database migrations...")
	if err := db.Migrate(ctx); err != nil {
		logger.Fatalw("Failed to apply migrations", "error", err)
	}
	logger.Info("Migration completed successfully")

	fmt.Println("Migration process completed")
}
