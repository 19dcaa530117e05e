package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dosipov/geotech-qa/internal/bootstrap"
	"github.com/dosipov/geotech-qa/internal/config"
	"github.com/dosipov/geotech-qa/internal/observability/logging"
)

const service = "geotech-qa-indexer"

// One-shot administrative command: chunk and embed the knowledge base,
// then persist the vector index artifacts. Run before starting the API
// and after any knowledge base change.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buildCtx, cancel := context.WithTimeout(ctx, 15*time.Minute)
	defer cancel()

	app := bootstrap.New(cfg, service, logger)

	start := time.Now()
	if err := app.Builder.BuildIndex(buildCtx); err != nil {
		logger.Error("index_build_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("index_build_completed",
		"dir", cfg.VectorStoreDir,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
