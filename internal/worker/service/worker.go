package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	orchestrator "github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
	"github.com/hiverender/hiverender/internal/worker/core"
)

// RenderWorker runs one job's chunk on this machine: fetch manifest and
// asset from the input store, render, push frames to the output store.
// Workers never talk to the orchestrator; the stores are the only
// coordination channel.
type RenderWorker struct {
	id             uuid.UUID
	index          int
	store          objectstore.Store
	inputBucket    string
	outputBucket   string
	workDir        string
	executor       core.RenderExecutor
	uploadAttempts uint
	uploadBackoff  time.Duration
	logger         logging.Logger
}

func NewRenderWorker(
	index int,
	store objectstore.Store,
	inputBucket, outputBucket, workDir string,
	executor core.RenderExecutor,
	uploadAttempts uint,
	uploadBackoff time.Duration,
	logger logging.Logger,
) *RenderWorker {
	return &RenderWorker{
		id:             uuid.New(),
		index:          index,
		store:          store,
		inputBucket:    inputBucket,
		outputBucket:   outputBucket,
		workDir:        workDir,
		executor:       executor,
		uploadAttempts: uploadAttempts,
		uploadBackoff:  uploadBackoff,
		logger:         logger,
	}
}

// Run processes the given job end to end. Fetch and render failures are
// fatal for the run; per-frame upload failures after retries are logged
// and skipped, since a missing frame only delays completion and a rerun
// can fill it in.
func (w *RenderWorker) Run(ctx context.Context, jobID string) error {
	w.logger.Info("Worker starting", "worker_id", w.id.String(), "worker_index", w.index, "job_id", jobID)

	jobDir := filepath.Join(w.workDir, jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}

	manifest, err := w.fetchManifest(ctx, jobID, jobDir)
	if err != nil {
		return err
	}

	chunk, err := core.ClaimChunk(manifest, w.index)
	if err != nil {
		return err
	}
	w.logger.Info("Chunk claimed", "job_id", jobID, "chunk_start", chunk.Start, "chunk_end", chunk.End)

	assetPath := filepath.Join(jobDir, manifest.Key)
	if err := w.store.Get(ctx, w.inputBucket, jobID+"/"+manifest.Key, assetPath); err != nil {
		return fmt.Errorf("fetch asset: %w", err)
	}

	outputDir := filepath.Join(jobDir, "render_out")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	spec := core.RenderSpec{
		AssetPath: assetPath,
		OutputDir: outputDir,
		Start:     chunk.Start,
		End:       chunk.End,
		Format:    orchestrator.OutputFormat(manifest.Format),
	}
	if err := w.executor.Render(ctx, spec); err != nil {
		return err
	}

	return w.uploadFrames(ctx, jobID, outputDir)
}

func (w *RenderWorker) fetchManifest(ctx context.Context, jobID, jobDir string) (*orchestrator.Manifest, error) {
	manifestPath := filepath.Join(jobDir, orchestrator.ManifestKey)
	if err := w.store.Get(ctx, w.inputBucket, jobID+"/"+orchestrator.ManifestKey, manifestPath); err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := orchestrator.DecodeManifest(data)
	if err != nil {
		return nil, err
	}
	if manifest.JobID != jobID {
		return nil, fmt.Errorf("manifest job id %s does not match requested job %s", manifest.JobID, jobID)
	}
	return manifest, nil
}

// uploadFrames globs the rendered frames and puts each one at
// {job_id}/{basename} in the output bucket with bounded retries.
// Uploads are at least once: a retried put may leave a duplicate write,
// which the count-based completion check upstream tolerates by waiting.
func (w *RenderWorker) uploadFrames(ctx context.Context, jobID, outputDir string) error {
	matches, err := doublestar.FilepathGlob(filepath.Join(outputDir, "**"))
	if err != nil {
		return fmt.Errorf("glob rendered frames: %w", err)
	}

	var frames []string
	for _, name := range matches {
		info, err := os.Lstat(name)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			frames = append(frames, name)
		}
	}

	uploaded, failed := 0, 0
	for _, frame := range frames {
		key := jobID + "/" + filepath.Base(frame)
		err := retry.Do(
			func() error {
				return w.store.Put(ctx, w.outputBucket, key, frame)
			},
			retry.Attempts(w.uploadAttempts),
			retry.Delay(w.uploadBackoff),
			retry.Context(ctx),
		)
		if err != nil {
			w.logger.Error("Frame upload failed", "job_id", jobID, "key", key, "error", err)
			failed++
			continue
		}
		w.logger.Debug("Frame uploaded", "job_id", jobID, "key", key)
		uploaded++
	}

	w.logger.Info("Upload finished", "job_id", jobID, "uploaded", uploaded, "failed", failed)
	if uploaded == 0 && len(frames) > 0 {
		return fmt.Errorf("all %d frame uploads failed", len(frames))
	}
	return nil
}
