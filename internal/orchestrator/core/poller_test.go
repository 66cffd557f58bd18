package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

func renderingJob(id string, start, end int) *Job {
	return &Job{
		ID:            id,
		FrameStart:    start,
		FrameEnd:      end,
		Chunks:        []Chunk{{start, end}},
		InstanceCount: 1,
		InstanceType:  InstanceXLarge,
		AssetKey:      "scene.blend",
		OutputFormat:  FormatPNG,
		State:         JobStateRendering,
		SubmittedAt:   time.Now().UTC(),
	}
}

func fillOutput(store *objectstore.InMemoryStore, bucket, jobID string, frames int) {
	for i := 1; i <= frames; i++ {
		key := fmt.Sprintf("%s/scene.blend_%04d.png", jobID, i)
		store.PutBytes(bucket, key, []byte("frame"))
	}
}

func TestPollCompleteOnExactCount(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	jobStore := newMockJobStore()
	poller := NewPoller(store, jobStore, "render-output", &mockLogger{})

	job := renderingJob("jobB", 1, 5)
	jobStore.SaveJob(job)
	fillOutput(store, "render-output", "jobB", 5)

	complete, err := poller.Poll(context.Background(), job)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !complete {
		t.Fatal("Expected poll to report complete with 5 of 5 objects")
	}
	if job.State != JobStateComplete {
		t.Errorf("Expected state complete, got %s", job.State)
	}
	if job.CompletedAt == nil {
		t.Error("Expected completion timestamp to be set")
	}

	saved, _ := jobStore.GetJobByID("jobB")
	if saved.State != JobStateComplete {
		t.Errorf("Expected persisted state complete, got %s", saved.State)
	}
}

func TestPollNotCompleteBelowCount(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	poller := NewPoller(store, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobC", 1, 5)
	fillOutput(store, "render-output", "jobC", 4)

	complete, err := poller.Poll(context.Background(), job)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if complete {
		t.Fatal("Expected poll to report not complete with 4 of 5 objects")
	}
	if job.State != JobStateRendering {
		t.Errorf("Expected state rendering, got %s", job.State)
	}
}

func TestPollStrictMatchNotSuperset(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	poller := NewPoller(store, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobS", 1, 5)
	fillOutput(store, "render-output", "jobS", 5)
	// A stray duplicate from a worker retry pushes the count past
	// expected; strict equality holds completion off.
	store.PutBytes("render-output", "jobS/scene.blend_0003.png.tmp", []byte("partial"))

	complete, _ := poller.Poll(context.Background(), job)
	if complete {
		t.Error("Expected strict count match to reject a superset")
	}
	if job.State != JobStateRendering {
		t.Errorf("Expected state rendering, got %s", job.State)
	}
}

func TestPollIgnoresOtherJobObjects(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	poller := NewPoller(store, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobX", 1, 3)
	fillOutput(store, "render-output", "jobX", 2)
	fillOutput(store, "render-output", "jobY", 5)

	if complete, _ := poller.Poll(context.Background(), job); complete {
		t.Error("Expected objects under other prefixes not to count")
	}
}

func TestPollStoreFailureIsNotFatal(t *testing.T) {
	poller := NewPoller(failingStore{}, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobF", 1, 5)
	complete, err := poller.Poll(context.Background(), job)
	if err != nil {
		t.Fatalf("Store failure must not surface as a poll error, got %v", err)
	}
	if complete {
		t.Error("Expected not complete on store failure")
	}
	if job.State != JobStateRendering {
		t.Errorf("Expected state unchanged on store failure, got %s", job.State)
	}
}

func TestPollIdempotentAfterComplete(t *testing.T) {
	// A complete job must report true without touching the store: the
	// failing store would error if queried.
	poller := NewPoller(failingStore{}, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobI", 1, 5)
	job.State = JobStateComplete

	complete, err := poller.Poll(context.Background(), job)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !complete {
		t.Error("Expected complete job to stay complete")
	}
}

func TestMissingFrames(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	poller := NewPoller(store, newMockJobStore(), "render-output", &mockLogger{})

	job := renderingJob("jobM", 1, 5)
	store.PutBytes("render-output", "jobM/scene.blend_0001.png", []byte("frame"))
	store.PutBytes("render-output", "jobM/scene.blend_0002.png", []byte("frame"))
	store.PutBytes("render-output", "jobM/scene.blend_0005.png", []byte("frame"))

	missing, err := poller.MissingFrames(context.Background(), job)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(missing) != 2 || missing[0] != 3 || missing[1] != 4 {
		t.Errorf("Expected missing frames [3 4], got %v", missing)
	}
}
