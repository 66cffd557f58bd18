package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hiverender/hiverender/internal/orchestrator/api/rest"
	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/orchestrator/scheduler"
	"github.com/hiverender/hiverender/internal/orchestrator/service"
	"github.com/hiverender/hiverender/internal/orchestrator/storage"
	"github.com/hiverender/hiverender/internal/shared/config"
	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

func main() {
	configPath := flag.String("config", "", "path to orchestrator config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadOrchestrator(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newObjectStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to set up object store", "error", err)
	}

	jobStore, closeStore, err := newJobStore(cfg.Jobs)
	if err != nil {
		logger.Fatal("Failed to set up job store", "error", err)
	}
	defer closeStore()

	submitter := core.NewSubmitter(store, jobStore, cfg.Store.InputBucket, nil, logger)
	poller := core.NewPoller(store, jobStore, cfg.Store.OutputBucket, logger)
	collector := core.NewCollector(store, cfg.Store.OutputBucket, logger)

	sched := scheduler.NewPollScheduler(cfg.Polling.Interval, poller.Poll, logger)
	defer sched.Shutdown()

	jobs := service.NewJobService(jobStore, submitter, poller, collector, sched, cfg.Jobs.ResultDir, logger)

	resumePolling(jobStore, sched, logger)

	mux := http.NewServeMux()
	api := rest.NewAPI(jobs, logger)
	api.RegisterRoutes(mux)

	handler := rest.ChainMiddleware(mux,
		rest.RecoveryMiddleware(logger),
		rest.LoggingMiddleware(logger),
	)

	server := &http.Server{
		Addr:         cfg.REST.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.REST.ReadTimeout,
		WriteTimeout: cfg.REST.WriteTimeout,
		IdleTimeout:  cfg.REST.IdleTimeout,
	}

	go func() {
		logger.Info("Starting orchestrator API server", "addr", cfg.REST.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.REST.WriteTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func newObjectStore(ctx context.Context, cfg config.StoreConfig) (objectstore.Store, error) {
	if cfg.Backend == "memory" {
		return objectstore.NewInMemoryStore(), nil
	}
	return objectstore.NewS3Store(ctx, cfg.Region, cfg.Endpoint)
}

func newJobStore(cfg config.JobsConfig) (core.JobStore, func(), error) {
	if cfg.StoreBackend == "memory" {
		return storage.NewInMemoryJobStore(), func() {}, nil
	}
	store, err := storage.NewSQLiteJobStore(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// resumePolling restarts completion checks for jobs that were still
// rendering when the orchestrator last stopped.
func resumePolling(jobStore core.JobStore, sched *scheduler.PollScheduler, logger logging.Logger) {
	rendering := core.JobStateRendering
	jobs, _, err := jobStore.GetJobs(core.JobFilter{State: &rendering})
	if err != nil {
		logger.Error("Failed to load rendering jobs", "error", err)
		return
	}
	for _, job := range jobs {
		logger.Info("Resuming completion polling", "job_id", job.ID)
		sched.Start(job)
	}
}
