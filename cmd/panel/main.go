package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/orchestrator/storage"
	"github.com/hiverender/hiverender/internal/panel"
	"github.com/hiverender/hiverender/internal/shared/config"
	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

func main() {
	configPath := flag.String("config", "", "path to panel config file")
	asset := flag.String("asset", "", "scene file to submit (overrides config)")
	start := flag.Int("start", 1, "first frame")
	end := flag.Int("end", 1, "last frame")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadPanel(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	assetPath := cfg.Asset.Path
	if *asset != "" {
		assetPath = *asset
	}
	if assetPath == "" {
		log.Fatal("no asset configured: set asset.path or pass -asset")
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	store, err := objectstore.NewS3Store(context.Background(), cfg.Store.Region, cfg.Store.Endpoint)
	if err != nil {
		log.Fatalf("Failed to set up object store: %v", err)
	}

	jobStore := storage.NewInMemoryJobStore()
	deps := panel.Deps{
		Submitter:    core.NewSubmitter(store, jobStore, cfg.Store.InputBucket, nil, logger),
		Poller:       core.NewPoller(store, jobStore, cfg.Store.OutputBucket, logger),
		Collector:    core.NewCollector(store, cfg.Store.OutputBucket, logger),
		AssetPath:    assetPath,
		OutputFormat: core.OutputFormat(cfg.Asset.Format),
		ResultDir:    cfg.Jobs.ResultDir,
		PollInterval: cfg.Polling.Interval,
		FrameStart:   *start,
		FrameEnd:     *end,
	}

	if err := panel.Run(deps); err != nil {
		log.Fatalf("Panel error: %v", err)
	}
}
