package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/shared/logging"
)

// PollFunc checks one job for completion and reports the result.
type PollFunc func(ctx context.Context, job *core.Job) (bool, error)

// PollScheduler runs a recurring completion check per job and hands the
// caller a cancellation path (Stop). A tick that fires while the
// previous poll of the same job is still in flight is skipped; separate
// jobs poll independently. When a poll reports complete the job's entry
// is removed.
//
// Polls run under the scheduler's own context, not the caller's: a poll
// schedule outlives the request that started it, and must not die with
// it. The context is cancelled on Shutdown.
type PollScheduler struct {
	cron     *cron.Cron
	interval time.Duration
	poll     PollFunc
	logger   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewPollScheduler(interval time.Duration, poll PollFunc, logger logging.Logger) *PollScheduler {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	c.Start()

	ctx, cancel := context.WithCancel(context.Background())
	return &PollScheduler{
		cron:     c,
		interval: interval,
		poll:     poll,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start begins recurring polls for the job. Starting an already
// scheduled job is a no-op.
func (s *PollScheduler) Start(job *core.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[job.ID]; exists {
		return
	}

	id := s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(func() {
		complete, err := s.poll(s.ctx, job)
		if err != nil {
			s.logger.Error("Poll failed", "job_id", job.ID, "error", err)
			return
		}
		if complete {
			s.Stop(job.ID)
		}
	}))
	s.entries[job.ID] = id

	s.logger.Info("Polling started", "job_id", job.ID, "interval", s.interval.String())
}

// Stop cancels the job's recurring poll. An in-flight poll is left to
// finish or fail on its own.
func (s *PollScheduler) Stop(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, exists := s.entries[jobID]
	if !exists {
		return
	}
	s.cron.Remove(id)
	delete(s.entries, jobID)

	s.logger.Info("Polling stopped", "job_id", jobID)
}

// Enabled reports whether the job currently has a scheduled poll.
func (s *PollScheduler) Enabled(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.entries[jobID]
	return exists
}

// Shutdown cancels in-flight polls and stops the underlying scheduler,
// waiting for running entries to return.
func (s *PollScheduler) Shutdown() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger adapts logging.Logger to the cron logging interface.
type cronLogger struct {
	logger logging.Logger
}

func (cl cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.logger.Debug(msg, keysAndValues...)
}

func (cl cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
