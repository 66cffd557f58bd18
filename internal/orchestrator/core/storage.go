package core

// JobStore persists job records. GetJobByID returns (nil, nil) for an
// unknown id. GetJobs also returns the total match count before paging.
type JobStore interface {
	SaveJob(job *Job) error
	UpdateJob(job *Job) error
	GetJobByID(id string) (*Job, error)
	GetJobs(filter JobFilter) ([]*Job, int, error)
}

// StoreError marks a job-store failure, letting transport layers tell a
// persistence fault apart from invalid input.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }
