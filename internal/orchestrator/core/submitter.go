package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/renstrom/shortuuid"

	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

// AssetSaver flushes the scene asset to disk before submission, so the
// uploaded file reflects what will be rendered. The collaborator owning
// the asset provides this.
type AssetSaver interface {
	Save(ctx context.Context) error
}

// SubmitParams are the caller-supplied job parameters. AssetPath is the
// local scene file to upload; its basename becomes the asset key.
type SubmitParams struct {
	FrameStart    int
	FrameEnd      int
	InstanceCount int
	InstanceType  InstanceType
	OutputFormat  OutputFormat
	AssetPath     string
}

// SubmitResult reports the submitted job plus any per-step upload
// failures. Submission is fire and forget: a failed upload is recorded
// here, never rolled back, and the job id assignment stands.
type SubmitResult struct {
	Job         *Job
	AssetErr    error
	ManifestErr error
}

// Submitter persists the asset and manifest into the input store under a
// fresh job-scoped namespace. Remote workers pick the job up from there
// by convention; nothing confirms the handoff.
type Submitter struct {
	store       objectstore.Store
	jobStore    JobStore
	inputBucket string
	saver       AssetSaver
	newID       func() string
	logger      logging.Logger
}

func NewSubmitter(store objectstore.Store, jobStore JobStore, inputBucket string, saver AssetSaver, logger logging.Logger) *Submitter {
	return &Submitter{
		store:       store,
		jobStore:    jobStore,
		inputBucket: inputBucket,
		saver:       saver,
		newID:       shortuuid.New,
		logger:      logger,
	}
}

// Submit runs the submission sequence: fresh job id, asset save hook,
// manifest build, asset upload, manifest upload, state flip to rendering.
// Parameter validation happens before any side effect; after that each
// step is attempted independently and failures are logged and surfaced on
// the result without aborting the rest.
func (s *Submitter) Submit(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	if params.AssetPath == "" {
		return nil, fmt.Errorf("asset path is empty")
	}
	if err := validateJobParams(
		params.FrameStart, params.FrameEnd,
		params.InstanceCount, params.InstanceType,
		filepath.Base(params.AssetPath), params.OutputFormat,
	); err != nil {
		return nil, err
	}

	jobID := s.newID()
	assetKey := filepath.Base(params.AssetPath)

	s.logger.Info("Submitting job",
		"job_id", jobID,
		"frame_start", params.FrameStart,
		"frame_end", params.FrameEnd,
		"instance_count", params.InstanceCount,
		"instance_type", string(params.InstanceType),
	)

	if s.saver != nil {
		if err := s.saver.Save(ctx); err != nil {
			s.logger.Error("Asset save failed, uploading last saved state", "job_id", jobID, "error", err)
		}
	}

	chunks, err := Partition(params.InstanceCount, params.FrameStart, params.FrameEnd)
	if err != nil {
		return nil, err
	}

	manifest, err := BuildManifest(
		jobID,
		params.FrameStart, params.FrameEnd,
		chunks,
		params.InstanceCount, params.InstanceType,
		assetKey, params.OutputFormat,
	)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{}

	result.AssetErr = s.store.Put(ctx, s.inputBucket, jobID+"/"+assetKey, params.AssetPath)
	if result.AssetErr != nil {
		s.logger.Error("Asset upload failed", "job_id", jobID, "key", assetKey, "error", result.AssetErr)
	}

	result.ManifestErr = s.uploadManifest(ctx, jobID, manifest)
	if result.ManifestErr != nil {
		s.logger.Error("Manifest upload failed", "job_id", jobID, "error", result.ManifestErr)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:            jobID,
		FrameStart:    params.FrameStart,
		FrameEnd:      params.FrameEnd,
		Chunks:        chunks,
		InstanceCount: params.InstanceCount,
		InstanceType:  params.InstanceType,
		AssetKey:      assetKey,
		OutputFormat:  params.OutputFormat,
		State:         JobStateSubmitted,
		SubmittedAt:   now,
	}
	// Polling starts right away, so the externally visible state is rendering.
	job.State = JobStateRendering
	result.Job = job

	if err := s.jobStore.SaveJob(job); err != nil {
		return result, &StoreError{Err: fmt.Errorf("save job %s: %w", jobID, err)}
	}

	s.logger.Info("Job submitted",
		"job_id", jobID,
		"num_chunks", len(chunks),
		"expected_frames", job.ExpectedFrames(),
	)
	return result, nil
}

// uploadManifest writes the manifest to a scratch file and puts it at
// {job_id}/job.manifest in the input bucket.
func (s *Submitter) uploadManifest(ctx context.Context, jobID string, manifest *Manifest) error {
	data, err := manifest.Encode()
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "hive-render-"+jobID)
	if err != nil {
		return fmt.Errorf("create job scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, ManifestKey)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest file: %w", err)
	}

	return s.store.Put(ctx, s.inputBucket, jobID+"/"+ManifestKey, path)
}
