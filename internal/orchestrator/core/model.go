package core

import (
	"fmt"
	"time"
)

// JobState tracks a job through its lifecycle. Only the transition from
// rendering to complete happens automatically (driven by the poller);
// the rest are made by submission.
type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateSubmitted JobState = "submitted"
	JobStateRendering JobState = "rendering"
	JobStateComplete  JobState = "complete"
)

// InstanceType is the worker sizing tier requested for a job. It is
// descriptive metadata for the execution backend; the orchestrator never
// interprets it.
type InstanceType string

const (
	InstanceXLarge   InstanceType = "xlarge"
	Instance2XLarge  InstanceType = "2xlarge"
	Instance4XLarge  InstanceType = "4xlarge"
	Instance8XLarge  InstanceType = "8xlarge"
	Instance12XLarge InstanceType = "12xlarge"
	Instance16XLarge InstanceType = "16xlarge"
)

// OutputFormat is the lowercase image-format token recorded in the
// manifest and handed through to the render engine.
type OutputFormat string

const (
	FormatPNG   OutputFormat = "png"
	FormatJPEG  OutputFormat = "jpeg"
	FormatEXR   OutputFormat = "exr"
	FormatTIFF  OutputFormat = "tiff"
	FormatBMP   OutputFormat = "bmp"
	FormatTarga OutputFormat = "targa"
)

const (
	MinInstanceCount = 1
	MaxInstanceCount = 6
)

// Chunk is a contiguous sub-range of frames assigned to one worker.
// Bounds are inclusive.
type Chunk struct {
	Start int
	End   int
}

// Frames returns the number of frames covered by the chunk.
func (c Chunk) Frames() int {
	return c.End - c.Start + 1
}

// Job is the unit of distributed rendering work. The ID doubles as the
// storage namespace prefix in both the input and output buckets, and is
// immutable once assigned. Chunks are computed exactly once, at manifest
// build time.
type Job struct {
	ID            string
	FrameStart    int
	FrameEnd      int
	Chunks        []Chunk
	InstanceCount int
	InstanceType  InstanceType
	AssetKey      string
	OutputFormat  OutputFormat
	State         JobState

	SubmittedAt time.Time
	CompletedAt *time.Time
}

// ExpectedFrames returns the number of output objects a finished job
// produces. Chunking affects worker parallelism, not output count.
func (j *Job) ExpectedFrames() int {
	return j.FrameEnd - j.FrameStart + 1
}

// Prefix returns the job's namespace in the object stores.
func (j *Job) Prefix() string {
	return j.ID + "/"
}

// JobFilter selects jobs when listing.
type JobFilter struct {
	State  *JobState
	Limit  int
	Offset int
}

// ValidInstanceType reports whether the given tier token is one of the
// recognized sizes.
func ValidInstanceType(t InstanceType) bool {
	switch t {
	case InstanceXLarge, Instance2XLarge, Instance4XLarge,
		Instance8XLarge, Instance12XLarge, Instance16XLarge:
		return true
	}
	return false
}

// ValidOutputFormat reports whether the given format token is recognized.
func ValidOutputFormat(f OutputFormat) bool {
	switch f {
	case FormatPNG, FormatJPEG, FormatEXR, FormatTIFF, FormatBMP, FormatTarga:
		return true
	}
	return false
}

// validateJobParams checks the per-field job invariants shared by the
// manifest builder and the submitter.
func validateJobParams(frameStart, frameEnd, instanceCount int, instanceType InstanceType, assetKey string, format OutputFormat) error {
	if frameStart > frameEnd {
		return fmt.Errorf("inverted frame range: start %d > end %d", frameStart, frameEnd)
	}
	if instanceCount < MinInstanceCount || instanceCount > MaxInstanceCount {
		return fmt.Errorf("instance count %d outside [%d, %d]", instanceCount, MinInstanceCount, MaxInstanceCount)
	}
	if !ValidInstanceType(instanceType) {
		return fmt.Errorf("unknown instance type %q", instanceType)
	}
	if assetKey == "" {
		return fmt.Errorf("asset key is empty")
	}
	if !ValidOutputFormat(format) {
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}
