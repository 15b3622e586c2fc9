// Command export writes an xlsx audit report of all rooms and reservations.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"roombooking/internal/audit"
	"roombooking/internal/config"
	"roombooking/internal/database"

	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", os.Getenv("ROOMBOOKING_CONFIG_PATH"), "path to config.yaml")
	outDir := flag.String("out", ".", "directory for the report")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	path := filepath.Join(*outDir, audit.GenerateFilename(time.Now().In(cfg.Location())))
	f, err := os.Create(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("create report file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := audit.WriteReport(ctx, db, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		logger.Fatal().Err(err).Msg("export failed")
	}
	if err := f.Close(); err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("close report file")
	}
	logger.Info().Str("path", path).Msg("Report written")
}
