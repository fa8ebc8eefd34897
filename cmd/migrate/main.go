package main

// Run database migrations:
//   go run ./cmd/migrate [up|down|status|version]

import (
	"context"
	"os"

	"photo-speech/internal/shared/config"
	"photo-speech/internal/shared/storage/db"
	"photo-speech/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.Migrate(ctx, sqlDB, command); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"command": command, "error": err.Error()})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"command": command})
}
