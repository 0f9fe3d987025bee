// Command smoketest creates a user, saves one chat turn and reads it back,
// either straight through the store or through a running API server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"gwi.com/chat-history/internal/config"
	"gwi.com/chat-history/internal/smoketest"
	"gwi.com/chat-history/internal/store"
)

func main() {
	mode := flag.String("mode", "db", "where to run the scenario: db or api")
	baseURL := flag.String("base-url", "http://localhost:3000", "API server base URL for -mode=api")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	ctx := context.Background()

	var (
		res *smoketest.Result
		err error
	)
	switch *mode {
	case "db":
		cfg, cfgErr := config.LoadConfig()
		if cfgErr != nil {
			logger.Error("failed to load configuration", "error", cfgErr)
			os.Exit(1)
		}
		logger.Info("starting database smoke test", "database", cfg.DatabaseURL)

		dbStore, openErr := store.Open(cfg.DatabaseURL)
		if openErr != nil {
			logger.Error("failed to open database", "error", openErr)
			os.Exit(1)
		}
		res, err = smoketest.RunStore(ctx, dbStore, logger)
		if closeErr := dbStore.Close(); closeErr != nil {
			logger.Error("failed to close database", "error", closeErr)
		}
	case "api":
		logger.Info("starting API smoke test", "base_url", *baseURL)
		res, err = smoketest.NewAPIClient(*baseURL).RunAPI(ctx, logger)
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("smoke test failed", "error", err)
		os.Exit(1)
	}
	logger.Info("smoke test passed", "user_id", res.User.ID, "history_entries", len(res.History))
}
