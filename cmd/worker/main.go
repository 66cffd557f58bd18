package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hiverender/hiverender/internal/shared/config"
	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
	"github.com/hiverender/hiverender/internal/worker/service"
)

func main() {
	configPath := flag.String("config", "", "path to worker config file")
	jobID := flag.String("job", "", "job id to render (required)")
	flag.Parse()

	_ = godotenv.Load()

	if *jobID == "" {
		log.Fatal("missing required -job flag")
	}

	cfg, err := config.LoadWorker(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := objectstore.NewS3Store(ctx, cfg.Store.Region, cfg.Store.Endpoint)
	if err != nil {
		logger.Fatal("Failed to set up object store", "error", err)
	}

	executor := service.NewExecExecutor(cfg.Render.Command, cfg.Render.Timeout, logger)
	worker := service.NewRenderWorker(
		cfg.Worker.Index,
		store,
		cfg.Store.InputBucket,
		cfg.Store.OutputBucket,
		cfg.Worker.WorkDir,
		executor,
		cfg.Worker.UploadAttempts,
		cfg.Worker.UploadBackoff,
		logger,
	)

	if err := worker.Run(ctx, *jobID); err != nil {
		logger.Fatal("Worker run failed", "job_id", *jobID, "error", err)
	}
}
