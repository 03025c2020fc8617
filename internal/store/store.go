package store

import (
	"sync"
	"time"
)

// jobNotFoundError signals an unknown job id for 404 mapping.
type jobNotFoundError struct{ id string }

func (e jobNotFoundError) Error() string { return "job not found: " + e.id }

// ErrJobNotFound constructs a jobNotFoundError.
func ErrJobNotFound(id string) error { return jobNotFoundError{id: id} }

// IsJobNotFound reports whether err indicates a missing job id.
func IsJobNotFound(err error) bool {
	_, ok := err.(jobNotFoundError)
	return ok
}

// Store is a thread-safe mapping from job id to job record. All mutation
// goes through Update (or the guarded mutators built on it) so readers only
// ever observe consistent snapshots.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func New() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Insert adds a new job record. Existing ids are overwritten; callers
// generate ids that are never reused.
func (s *Store) Insert(j Job) {
	s.mu.Lock()
	cp := j.clone()
	s.jobs[j.ID] = &cp
	s.mu.Unlock()
}

// Remove deletes a record. Used to roll back a submission that could not be
// enqueued.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Get returns a copy of the job or ErrJobNotFound.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound(id)
	}
	return j.clone(), nil
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Update applies fn to the record under the store lock. Terminal records are
// immutable: fn is not invoked for them. Keep fn short; it runs inside the
// critical section.
func (s *Store) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound(id)
	}
	if j.Status.Terminal() {
		return nil
	}
	fn(j)
	return nil
}

// MarkRunning transitions a queued job to running and stamps StartedAt.
func (s *Store) MarkRunning(id string) error {
	return s.Update(id, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 0
		j.StartedAt = time.Now()
	})
}

// SetProgress records completion percentage. Updates are clamped to [0,100]
// and only ever move forward; non-running jobs are left untouched.
func (s *Store) SetProgress(id string, pct float64) error {
	return s.Update(id, func(j *Job) {
		if j.Status != StatusRunning {
			return
		}
		if pct > 100 {
			pct = 100
		}
		if pct > j.Progress {
			j.Progress = pct
		}
	})
}

// MarkSucceeded finalizes a job with its result path. Input image bytes are
// released; terminal records keep only metadata.
func (s *Store) MarkSucceeded(id, resultPath string) error {
	return s.Update(id, func(j *Job) {
		j.Status = StatusSucceeded
		j.Progress = 100
		j.ResultPath = resultPath
		j.CompletedAt = time.Now()
		j.Images = nil
	})
}

// MarkFailed finalizes a job with a failure message.
func (s *Store) MarkFailed(id, msg string) error {
	return s.Update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = msg
		j.CompletedAt = time.Now()
		j.Images = nil
	})
}
