package storage

import (
	"sort"
	"sync"

	"github.com/hiverender/hiverender/internal/orchestrator/core"
)

// InMemoryJobStore keeps job records in process memory. Suitable for the
// panel and for tests; the orchestrator service uses the SQLite store.
//
// Records are copied on the way in and out, so a caller's job struct and
// a stored one never alias. The poll goroutine mutates its own copy and
// persists through UpdateJob, the same contract the SQLite store gives.
type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*core.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]*core.Job),
	}
}

func cloneJob(job *core.Job) *core.Job {
	clone := *job
	clone.Chunks = append([]core.Chunk(nil), job.Chunks...)
	if job.CompletedAt != nil {
		at := *job.CompletedAt
		clone.CompletedAt = &at
	}
	return &clone
}

func (s *InMemoryJobStore) SaveJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *InMemoryJobStore) UpdateJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *InMemoryJobStore) GetJobByID(id string) (*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, nil
	}
	return cloneJob(job), nil
}

func (s *InMemoryJobStore) GetJobs(filter core.JobFilter) ([]*core.Job, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*core.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.State != nil && job.State != *filter.State {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].SubmittedAt.After(matched[j].SubmittedAt)
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*core.Job, 0, end-start)
	for _, job := range matched[start:end] {
		page = append(page, cloneJob(job))
	}
	return page, total, nil
}
