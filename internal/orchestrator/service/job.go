package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/orchestrator/scheduler"
	"github.com/hiverender/hiverender/internal/shared/logging"
)

// JobStatus is the job record plus what the poller can say about its
// output right now.
type JobStatus struct {
	Job           *core.Job
	AutoRefresh   bool
	MissingFrames []int
	CheckedAt     time.Time
}

// JobService is the orchestrator's job-facing surface: submission,
// lookup, collection, and the auto-refresh toggle over the poll
// scheduler.
type JobService interface {
	Submit(ctx context.Context, params core.SubmitParams) (*core.SubmitResult, error)
	GetJob(id string) (*core.Job, error)
	GetJobs(filter core.JobFilter) ([]*core.Job, int, error)
	Status(ctx context.Context, id string) (*JobStatus, error)
	Collect(ctx context.Context, id string) (*core.CollectResult, error)
	SetAutoRefresh(ctx context.Context, id string, enabled bool) error
}

type jobService struct {
	jobStore  core.JobStore
	submitter *core.Submitter
	poller    *core.Poller
	collector *core.Collector
	scheduler *scheduler.PollScheduler
	resultDir string
	logger    logging.Logger
}

func NewJobService(
	jobStore core.JobStore,
	submitter *core.Submitter,
	poller *core.Poller,
	collector *core.Collector,
	sched *scheduler.PollScheduler,
	resultDir string,
	logger logging.Logger,
) JobService {
	return &jobService{
		jobStore:  jobStore,
		submitter: submitter,
		poller:    poller,
		collector: collector,
		scheduler: sched,
		resultDir: resultDir,
		logger:    logger,
	}
}

// Submit hands the job to the submitter and starts recurring completion
// polls for it. Upload failures inside the submission are best effort
// and already recorded on the result; polling starts regardless, since a
// partially submitted job may still be picked up. The poll schedule runs
// on the scheduler's own lifetime, detached from the request context.
func (s *jobService) Submit(ctx context.Context, params core.SubmitParams) (*core.SubmitResult, error) {
	result, err := s.submitter.Submit(ctx, params)
	if err != nil {
		return nil, err
	}
	s.scheduler.Start(result.Job)
	return result, nil
}

func (s *jobService) GetJob(id string) (*core.Job, error) {
	return s.jobStore.GetJobByID(id)
}

func (s *jobService) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	return s.jobStore.GetJobs(filter)
}

// Status reports the job's state plus the expected frames still missing
// from the output store. A failing store lookup degrades to a status
// without frame detail rather than an error.
func (s *jobService) Status(ctx context.Context, id string) (*JobStatus, error) {
	job, err := s.jobStore.GetJobByID(id)
	if err != nil || job == nil {
		return nil, err
	}

	status := &JobStatus{
		Job:         job,
		AutoRefresh: s.scheduler.Enabled(job.ID),
		CheckedAt:   time.Now().UTC(),
	}
	if job.State != core.JobStateComplete {
		missing, err := s.poller.MissingFrames(ctx, job)
		if err != nil {
			s.logger.Warn("Missing-frame lookup failed", "job_id", job.ID, "error", err)
		} else {
			status.MissingFrames = missing
		}
	}
	return status, nil
}

// Collect downloads the job's rendered frames into the configured result
// directory. Allowed before completion; fetches whatever exists.
func (s *jobService) Collect(ctx context.Context, id string) (*core.CollectResult, error) {
	job, err := s.jobStore.GetJobByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", id)
	}
	dest := filepath.Join(s.resultDir, job.ID, "render_out")
	return s.collector.Collect(ctx, job, dest)
}

// SetAutoRefresh enables or disables the recurring completion poll for a
// job. Enabling a complete job is a no-op.
func (s *jobService) SetAutoRefresh(ctx context.Context, id string, enabled bool) error {
	job, err := s.jobStore.GetJobByID(id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s not found", id)
	}

	if !enabled {
		s.scheduler.Stop(job.ID)
		return nil
	}
	if job.State == core.JobStateComplete {
		return nil
	}
	s.scheduler.Start(job)
	return nil
}
