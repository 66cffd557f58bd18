package core

import (
	"context"
	"fmt"

	orchestrator "github.com/hiverender/hiverender/internal/orchestrator/core"
)

// RenderSpec describes one chunk's render run: where the asset lives,
// where frames go, and the inclusive frame bounds.
type RenderSpec struct {
	AssetPath string
	OutputDir string
	Start     int
	End       int
	Format    orchestrator.OutputFormat
}

// RenderExecutor launches the external render engine for one chunk and
// blocks until it finishes. The engine is opaque; only the environment
// contract is shared.
type RenderExecutor interface {
	Render(ctx context.Context, spec RenderSpec) error
}

// ClaimChunk picks this worker's chunk from the manifest by worker
// index. Indices past the chunk count wrap around, so a fleet larger
// than the chunk list still leaves no chunk unclaimed.
func ClaimChunk(manifest *orchestrator.Manifest, workerIndex int) (orchestrator.Chunk, error) {
	chunks := manifest.ChunkList()
	if len(chunks) == 0 {
		return orchestrator.Chunk{}, fmt.Errorf("manifest %s has no chunks", manifest.JobID)
	}
	if workerIndex < 0 {
		return orchestrator.Chunk{}, fmt.Errorf("negative worker index %d", workerIndex)
	}
	return chunks[workerIndex%len(chunks)], nil
}
