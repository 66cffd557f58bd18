package rest

import "time"

// SubmitJobRequest is the payload for POST /api/jobs.
type SubmitJobRequest struct {
	FrameStart    int    `json:"frame_start"`
	FrameEnd      int    `json:"frame_end"`
	InstanceCount int    `json:"instance_count"`
	InstanceType  string `json:"instance_type"`
	OutputFormat  string `json:"output_format"`
	AssetPath     string `json:"asset_path"`
}

// SubmitJobResponse reports the assigned job id and any per-upload
// failures from the best-effort submission.
type SubmitJobResponse struct {
	JobID          string    `json:"job_id"`
	State          string    `json:"state"`
	ExpectedFrames int       `json:"expected_frames"`
	Chunks         [][2]int  `json:"chunks"`
	SubmittedAt    time.Time `json:"submitted_at"`
	AssetError     string    `json:"asset_error,omitempty"`
	ManifestError  string    `json:"manifest_error,omitempty"`
	Links          Links     `json:"links"`
}

type Links struct {
	Self string `json:"self"`
}

// GetJobResponse is the payload for GET /api/jobs/{id}.
type GetJobResponse struct {
	JobID          string     `json:"job_id"`
	State          string     `json:"state"`
	FrameStart     int        `json:"frame_start"`
	FrameEnd       int        `json:"frame_end"`
	ExpectedFrames int        `json:"expected_frames"`
	Chunks         [][2]int   `json:"chunks"`
	InstanceCount  int        `json:"instance_count"`
	InstanceType   string     `json:"instance_type"`
	AssetKey       string     `json:"asset_key"`
	OutputFormat   string     `json:"output_format"`
	AutoRefresh    bool       `json:"auto_refresh"`
	MissingFrames  []int      `json:"missing_frames,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CheckedAt      time.Time  `json:"checked_at"`
}

// JobSummary is one row of the job list.
type JobSummary struct {
	JobID       string     `json:"job_id"`
	State       string     `json:"state"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListJobsResponse is the payload for GET /api/jobs.
type ListJobsResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

// CollectResponse is the payload for POST /api/jobs/{id}/collect.
type CollectResponse struct {
	JobID      string   `json:"job_id"`
	Dir        string   `json:"dir"`
	Downloaded []string `json:"downloaded"`
	Failed     int      `json:"failed"`
}

// AutoRefreshRequest toggles recurring completion polling for a job.
type AutoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

// AutoRefreshResponse echoes the new toggle state.
type AutoRefreshResponse struct {
	JobID   string `json:"job_id"`
	Enabled bool   `json:"enabled"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
