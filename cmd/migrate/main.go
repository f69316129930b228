package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"time"

	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/logger"

	"github.com/uptrace/bun/driver/pgdriver"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	down := flag.Bool("down", false, "roll back every migration")
	to := flag.Int("to", -1, "migrate up or down to this version")
	seed := flag.Bool("seed", cfg.Database.SeedData, "apply seed data migrations")
	dir := flag.String("dir", cfg.Database.MigrationsDir, "migrations directory")
	flag.Parse()

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN)))
	defer sqldb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatal("MIGRATE", fmt.Sprintf("Failed to connect to database: %v", err))
	}

	runner := migrations.NewRunner(sqldb, migrations.MigrateOptions{MigrationsDir: *dir, SeedData: *seed}, log)
	defer runner.Close()

	var err error
	switch {
	case *down:
		log.Info("MIGRATE", "Rolling back all migrations...")
		err = runner.MigrateDown()
	case *to >= 0:
		log.Info("MIGRATE", fmt.Sprintf("Migrating to version %d...", *to))
		err = runner.MigrateTo(uint(*to))
	default:
		err = runner.RunMigrations()
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "Done")
}
