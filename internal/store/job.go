package store

import "time"

// Status represents the lifecycle of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Params are the generation parameters carried by a job. Values are
// normalized (defaulted and clamped) before the job enters the store.
type Params struct {
	Steps         int
	GuidanceScale float64
	Seed          *int64
}

// Job is one queued editing request and its lifecycle record.
// Images are ordered; the model refers to them positionally.
type Job struct {
	ID             string
	Status         Status
	Progress       float64
	Prompt         string
	NegativePrompt string
	Images         [][]byte
	Params         Params
	ResultPath     string
	Error          string
	CreatedAt      time.Time
	StartedAt      time.Time
	CompletedAt    time.Time
}

// clone returns a deep-enough copy for safe hand-out: the byte buffers are
// shared (they are never mutated after insert) but the slice header is not.
func (j *Job) clone() Job {
	out := *j
	out.Images = append([][]byte(nil), j.Images...)
	return out
}
