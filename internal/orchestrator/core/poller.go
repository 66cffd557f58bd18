package core

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

// Poller infers job completion from the output store. Workers never
// signal completion; the only evidence is the objects they leave behind.
type Poller struct {
	store        objectstore.Store
	jobStore     JobStore
	outputBucket string
	logger       logging.Logger
}

func NewPoller(store objectstore.Store, jobStore JobStore, outputBucket string, logger logging.Logger) *Poller {
	return &Poller{
		store:        store,
		jobStore:     jobStore,
		outputBucket: outputBucket,
		logger:       logger,
	}
}

// Poll counts the objects under the job's output prefix and flips the
// job to complete on an exact match with the expected frame count. The
// match is strict equality: stray or duplicate objects hold completion
// off rather than triggering it. Store failures and a non-matching count
// both report not-complete; the next scheduled tick tries again. Polling
// an already complete job is a no-op and queries nothing.
func (p *Poller) Poll(ctx context.Context, job *Job) (bool, error) {
	if job.State == JobStateComplete {
		return true, nil
	}

	_, count, err := p.store.List(ctx, p.outputBucket, job.Prefix())
	if err != nil {
		p.logger.Warn("Completion check failed, retrying next tick", "job_id", job.ID, "error", err)
		return false, nil
	}

	expected := job.ExpectedFrames()
	if count != expected {
		p.logger.Debug("Render in progress", "job_id", job.ID, "have", count, "want", expected)
		return false, nil
	}

	job.State = JobStateComplete
	job.CompletedAt = ptrTimeNow()
	if err := p.jobStore.UpdateJob(job); err != nil {
		p.logger.Error("Failed to persist completed job", "job_id", job.ID, "error", err)
	}

	p.logger.Info("Render complete", "job_id", job.ID, "frames", count)
	return true, nil
}

// MissingFrames reports the expected frame indices that have no object
// under the job prefix yet. Frame indices are parsed from the trailing
// digit run in each key's basename, the way render engines number their
// output files. Diagnostic only: completion stays count-based.
func (p *Poller) MissingFrames(ctx context.Context, job *Job) ([]int, error) {
	keys, _, err := p.store.List(ctx, p.outputBucket, job.Prefix())
	if err != nil {
		return nil, err
	}

	present := make(map[int]bool, len(keys))
	for _, key := range keys {
		if frame, ok := parseFrameIndex(key); ok {
			present[frame] = true
		}
	}

	var missing []int
	for frame := job.FrameStart; frame <= job.FrameEnd; frame++ {
		if !present[frame] {
			missing = append(missing, frame)
		}
	}
	return missing, nil
}

// parseFrameIndex extracts the frame number from an output key like
// "abc123/scene.blend_0042.png".
func parseFrameIndex(key string) (int, bool) {
	base := path.Base(key)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}

	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	frame, err := strconv.Atoi(base[start:end])
	if err != nil {
		return 0, false
	}
	return frame, true
}
