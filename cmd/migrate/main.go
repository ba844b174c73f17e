package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/smilemakc/atelier/internal/infrastructure/storage"
	"github.com/smilemakc/atelier/migrations"
)

var (
	command     string
	databaseURL string
)

func init() {
	flag.StringVar(&command, "command", "up", "Migration command: init, up, down, status, reset")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL database URL (overrides ATELIER_DATABASE_URL)")
}

func main() {
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dbURL := databaseURL
	if dbURL == "" {
		dbURL = os.Getenv("ATELIER_DATABASE_URL")
	}
	if dbURL == "" {
		slog.Error("database URL is required: pass -database-url or set ATELIER_DATABASE_URL")
		os.Exit(1)
	}

	db, err := storage.NewDB(&storage.Config{DSN: dbURL})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	migrator, err := storage.NewMigrator(db, migrations.FS)
	if err != nil {
		slog.Error("failed to create migrator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "init":
		err = migrator.Init(ctx)
	case "up":
		if err = migrator.Init(ctx); err == nil {
			err = migrator.Up(ctx)
		}
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	case "reset":
		err = migrator.Reset(ctx)
	default:
		err = fmt.Errorf("unknown command: %s", command)
	}

	if err != nil {
		slog.Error("migration command failed", "command", command, "error", err)
		os.Exit(1)
	}

	slog.Info("migration command completed", "command", command)
}
