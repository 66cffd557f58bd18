package core

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hiverender/hiverender/internal/shared/logging"
	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

// CollectResult reports what a collection run actually fetched.
type CollectResult struct {
	Dir        string
	Downloaded []string
	Failed     int
}

// Collector downloads a job's rendered frames from the output store into
// a local directory.
type Collector struct {
	store        objectstore.Store
	outputBucket string
	logger       logging.Logger
}

func NewCollector(store objectstore.Store, outputBucket string, logger logging.Logger) *Collector {
	return &Collector{
		store:        store,
		outputBucket: outputBucket,
		logger:       logger,
	}
}

// Collect enumerates the job's output prefix and downloads every object
// into destDir (created if absent), overwriting files of the same name.
// Each download is attempted independently; failures are logged and
// counted without aborting the rest. Collecting before completion is
// allowed and fetches whatever subset exists.
func (c *Collector) Collect(ctx context.Context, job *Job, destDir string) (*CollectResult, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}

	keys, _, err := c.store.List(ctx, c.outputBucket, job.Prefix())
	if err != nil {
		return nil, err
	}

	result := &CollectResult{Dir: destDir}
	for _, key := range keys {
		local := filepath.Join(destDir, path.Base(key))
		if err := c.store.Get(ctx, c.outputBucket, key, local); err != nil {
			c.logger.Error("Frame download failed", "job_id", job.ID, "key", key, "error", err)
			result.Failed++
			continue
		}
		c.logger.Debug("Frame downloaded", "job_id", job.ID, "key", key)
		result.Downloaded = append(result.Downloaded, key)
	}

	c.logger.Info("Collection finished",
		"job_id", job.ID,
		"dir", destDir,
		"downloaded", len(result.Downloaded),
		"failed", result.Failed,
	)
	return result, nil
}

func ptrTimeNow() *time.Time {
	t := time.Now().UTC()
	return &t
}
