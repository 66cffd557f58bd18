package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hiverender/hiverender/internal/shared/objectstore"
)

// mockLogger is a no-op logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any) {}
func (m *mockLogger) Info(msg string, args ...any)  {}
func (m *mockLogger) Warn(msg string, args ...any)  {}
func (m *mockLogger) Error(msg string, args ...any) {}
func (m *mockLogger) Fatal(msg string, args ...any) {}

// mockJobStore is an in-memory implementation of JobStore for testing
type mockJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]*Job)}
}

func (s *mockJobStore) SaveJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *mockJobStore) UpdateJob(job *Job) error {
	return s.SaveJob(job)
}

func (s *mockJobStore) GetJobByID(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id], nil
}

func (s *mockJobStore) GetJobs(filter JobFilter) ([]*Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []*Job
	for _, job := range s.jobs {
		if filter.State != nil && job.State != *filter.State {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, len(jobs), nil
}

// failingStore rejects every operation.
type failingStore struct{}

func (failingStore) Put(ctx context.Context, bucket, key, localPath string) error {
	return errors.New("store unreachable")
}

func (failingStore) Get(ctx context.Context, bucket, key, localPath string) error {
	return errors.New("store unreachable")
}

func (failingStore) List(ctx context.Context, bucket, prefix string) ([]string, int, error) {
	return nil, 0, errors.New("store unreachable")
}

func writeTempAsset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.blend")
	if err := os.WriteFile(path, []byte("blend-data"), 0o644); err != nil {
		t.Fatalf("Failed to write asset: %v", err)
	}
	return path
}

func testParams(assetPath string) SubmitParams {
	return SubmitParams{
		FrameStart:    1,
		FrameEnd:      10,
		InstanceCount: 3,
		InstanceType:  Instance4XLarge,
		OutputFormat:  FormatPNG,
		AssetPath:     assetPath,
	}
}

func TestSubmitUploadsAssetAndManifest(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	jobStore := newMockJobStore()
	submitter := NewSubmitter(store, jobStore, "render-input", nil, &mockLogger{})

	result, err := submitter.Submit(context.Background(), testParams(writeTempAsset(t)))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.AssetErr != nil || result.ManifestErr != nil {
		t.Fatalf("Expected clean uploads, got asset=%v manifest=%v", result.AssetErr, result.ManifestErr)
	}

	job := result.Job
	if job.ID == "" {
		t.Fatal("Expected job id to be assigned")
	}
	if job.State != JobStateRendering {
		t.Errorf("Expected state rendering, got %s", job.State)
	}
	if job.ExpectedFrames() != 10 {
		t.Errorf("Expected 10 frames, got %d", job.ExpectedFrames())
	}
	if len(job.Chunks) != 3 {
		t.Errorf("Expected 3 chunks, got %d", len(job.Chunks))
	}

	if data := store.GetBytes("render-input", job.ID+"/scene.blend"); string(data) != "blend-data" {
		t.Errorf("Asset not uploaded at expected key: %q", data)
	}

	manifestData := store.GetBytes("render-input", job.ID+"/"+ManifestKey)
	if manifestData == nil {
		t.Fatal("Manifest not uploaded")
	}
	manifest, err := DecodeManifest(manifestData)
	if err != nil {
		t.Fatalf("Uploaded manifest does not decode: %v", err)
	}
	if manifest.JobID != job.ID || manifest.Key != "scene.blend" || manifest.Format != "png" {
		t.Errorf("Manifest fields wrong: %+v", manifest)
	}

	saved, _ := jobStore.GetJobByID(job.ID)
	if saved == nil {
		t.Error("Job not persisted")
	}
}

func TestSubmitExpectedFramesIndependentOfChunking(t *testing.T) {
	store := objectstore.NewInMemoryStore()

	for count := 1; count <= 6; count++ {
		submitter := NewSubmitter(store, newMockJobStore(), "render-input", nil, &mockLogger{})
		params := testParams(writeTempAsset(t))
		params.InstanceCount = count

		result, err := submitter.Submit(context.Background(), params)
		if err != nil {
			t.Fatalf("count=%d: unexpected error %v", count, err)
		}
		if result.Job.ExpectedFrames() != 10 {
			t.Errorf("count=%d: expected 10 frames, got %d", count, result.Job.ExpectedFrames())
		}
	}
}

func TestSubmitContinuesPastUploadFailures(t *testing.T) {
	jobStore := newMockJobStore()
	submitter := NewSubmitter(failingStore{}, jobStore, "render-input", nil, &mockLogger{})

	result, err := submitter.Submit(context.Background(), testParams(writeTempAsset(t)))
	if err != nil {
		t.Fatalf("Upload failures must not fail the submission, got %v", err)
	}

	// Both uploads were attempted independently, both failed, and the
	// job id assignment stands.
	if result.AssetErr == nil {
		t.Error("Expected asset upload error to be reported")
	}
	if result.ManifestErr == nil {
		t.Error("Expected manifest upload error to be reported")
	}
	if result.Job.ID == "" {
		t.Error("Expected job id despite failures")
	}
	if result.Job.State != JobStateRendering {
		t.Errorf("Expected state rendering despite failures, got %s", result.Job.State)
	}

	saved, _ := jobStore.GetJobByID(result.Job.ID)
	if saved == nil {
		t.Error("Job must be persisted despite upload failures")
	}
}

func TestSubmitRejectsInvalidParamsBeforeSideEffects(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	jobStore := newMockJobStore()
	submitter := NewSubmitter(store, jobStore, "render-input", nil, &mockLogger{})

	asset := writeTempAsset(t)
	bad := []SubmitParams{
		{FrameStart: 10, FrameEnd: 1, InstanceCount: 1, InstanceType: InstanceXLarge, OutputFormat: FormatPNG, AssetPath: asset},
		{FrameStart: 1, FrameEnd: 10, InstanceCount: 0, InstanceType: InstanceXLarge, OutputFormat: FormatPNG, AssetPath: asset},
		{FrameStart: 1, FrameEnd: 10, InstanceCount: 7, InstanceType: InstanceXLarge, OutputFormat: FormatPNG, AssetPath: asset},
		{FrameStart: 1, FrameEnd: 10, InstanceCount: 1, InstanceType: "mega", OutputFormat: FormatPNG, AssetPath: asset},
		{FrameStart: 1, FrameEnd: 10, InstanceCount: 1, InstanceType: InstanceXLarge, OutputFormat: "gif", AssetPath: asset},
		{FrameStart: 1, FrameEnd: 10, InstanceCount: 1, InstanceType: InstanceXLarge, OutputFormat: FormatPNG, AssetPath: ""},
	}

	for i, params := range bad {
		if _, err := submitter.Submit(context.Background(), params); err == nil {
			t.Errorf("Case %d: expected validation error", i)
		}
	}

	if _, count, _ := store.List(context.Background(), "render-input", ""); count != 0 {
		t.Errorf("Expected no uploads after rejected submissions, found %d objects", count)
	}
	if jobs, _, _ := jobStore.GetJobs(JobFilter{}); len(jobs) != 0 {
		t.Errorf("Expected no persisted jobs after rejected submissions, found %d", len(jobs))
	}
}

// recordingSaver tracks whether the asset save hook ran.
type recordingSaver struct {
	saved bool
	err   error
}

func (r *recordingSaver) Save(ctx context.Context) error {
	r.saved = true
	return r.err
}

func TestSubmitRunsAssetSaveHook(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	saver := &recordingSaver{}
	submitter := NewSubmitter(store, newMockJobStore(), "render-input", saver, &mockLogger{})

	if _, err := submitter.Submit(context.Background(), testParams(writeTempAsset(t))); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !saver.saved {
		t.Error("Expected asset save hook to run before upload")
	}
}

func TestSubmitToleratesAssetSaveFailure(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	saver := &recordingSaver{err: fmt.Errorf("disk full")}
	submitter := NewSubmitter(store, newMockJobStore(), "render-input", saver, &mockLogger{})

	result, err := submitter.Submit(context.Background(), testParams(writeTempAsset(t)))
	if err != nil {
		t.Fatalf("Save failure must not abort submission, got %v", err)
	}
	if result.AssetErr != nil {
		t.Errorf("Expected last saved asset state to upload cleanly, got %v", result.AssetErr)
	}
}

// brokenJobStore fails persistence while the rest of the pipeline works.
type brokenJobStore struct{}

func (brokenJobStore) SaveJob(*Job) error   { return errors.New("database is locked") }
func (brokenJobStore) UpdateJob(*Job) error { return errors.New("database is locked") }
func (brokenJobStore) GetJobByID(string) (*Job, error) {
	return nil, nil
}
func (brokenJobStore) GetJobs(JobFilter) ([]*Job, int, error) {
	return nil, 0, nil
}

func TestSubmitPersistenceFailureIsStoreError(t *testing.T) {
	store := objectstore.NewInMemoryStore()
	submitter := NewSubmitter(store, brokenJobStore{}, "render-input", nil, &mockLogger{})

	result, err := submitter.Submit(context.Background(), testParams(writeTempAsset(t)))
	if err == nil {
		t.Fatal("Expected an error when the job cannot be persisted")
	}

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Errorf("Expected a StoreError, got %T: %v", err, err)
	}
	// The uploads already happened; the result still reports them.
	if result == nil || result.Job == nil {
		t.Fatal("Expected the partial result alongside the error")
	}
	if result.AssetErr != nil || result.ManifestErr != nil {
		t.Errorf("Expected clean uploads, got asset=%v manifest=%v", result.AssetErr, result.ManifestErr)
	}
}
