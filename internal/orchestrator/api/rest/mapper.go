package rest

import (
	"fmt"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
	"github.com/hiverender/hiverender/internal/orchestrator/service"
)

func (req *SubmitJobRequest) ToParams() core.SubmitParams {
	return core.SubmitParams{
		FrameStart:    req.FrameStart,
		FrameEnd:      req.FrameEnd,
		InstanceCount: req.InstanceCount,
		InstanceType:  core.InstanceType(req.InstanceType),
		OutputFormat:  core.OutputFormat(req.OutputFormat),
		AssetPath:     req.AssetPath,
	}
}

func chunkPairs(chunks []core.Chunk) [][2]int {
	pairs := make([][2]int, 0, len(chunks))
	for _, c := range chunks {
		pairs = append(pairs, [2]int{c.Start, c.End})
	}
	return pairs
}

func ToSubmitJobResponse(result *core.SubmitResult) SubmitJobResponse {
	job := result.Job
	resp := SubmitJobResponse{
		JobID:          job.ID,
		State:          string(job.State),
		ExpectedFrames: job.ExpectedFrames(),
		Chunks:         chunkPairs(job.Chunks),
		SubmittedAt:    job.SubmittedAt,
		Links: Links{
			Self: fmt.Sprintf("/api/jobs/%s", job.ID),
		},
	}
	if result.AssetErr != nil {
		resp.AssetError = result.AssetErr.Error()
	}
	if result.ManifestErr != nil {
		resp.ManifestError = result.ManifestErr.Error()
	}
	return resp
}

func ToGetJobResponse(status *service.JobStatus) GetJobResponse {
	job := status.Job
	return GetJobResponse{
		JobID:          job.ID,
		State:          string(job.State),
		FrameStart:     job.FrameStart,
		FrameEnd:       job.FrameEnd,
		ExpectedFrames: job.ExpectedFrames(),
		Chunks:         chunkPairs(job.Chunks),
		InstanceCount:  job.InstanceCount,
		InstanceType:   string(job.InstanceType),
		AssetKey:       job.AssetKey,
		OutputFormat:   string(job.OutputFormat),
		AutoRefresh:    status.AutoRefresh,
		MissingFrames:  status.MissingFrames,
		SubmittedAt:    job.SubmittedAt,
		CompletedAt:    job.CompletedAt,
		CheckedAt:      status.CheckedAt,
	}
}

func ToJobSummary(job *core.Job) JobSummary {
	return JobSummary{
		JobID:       job.ID,
		State:       string(job.State),
		SubmittedAt: job.SubmittedAt,
		CompletedAt: job.CompletedAt,
	}
}

func ToCollectResponse(jobID string, result *core.CollectResult) CollectResponse {
	downloaded := result.Downloaded
	if downloaded == nil {
		downloaded = []string{}
	}
	return CollectResponse{
		JobID:      jobID,
		Dir:        result.Dir,
		Downloaded: downloaded,
		Failed:     result.Failed,
	}
}
