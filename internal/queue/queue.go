// Package queue is the serialization point for the single model instance: a
// FIFO of job ids drained by exactly one worker. Submit validates and
// enqueues without ever blocking on model state; the worker owns every
// transition out of Queued.
package queue

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"editd/internal/infer"
	"editd/internal/manager"
	"editd/internal/results"
	"editd/internal/store"
)

// defaultDepth bounds the number of queued jobs before submissions are
// rejected with ErrQueueFull.
const defaultDepth = 32

// Config encapsulates the queue's collaborators.
type Config struct {
	Store   *store.Store
	Manager *manager.Manager
	Runner  infer.Runner
	Results *results.Store
	Depth   int
	Logger  zerolog.Logger
}

type Queue struct {
	store   *store.Store
	mgr     *manager.Manager
	runner  infer.Runner
	results *results.Store
	jobs    chan string
	log     zerolog.Logger
}

func New(cfg Config) *Queue {
	depth := cfg.Depth
	if depth <= 0 {
		depth = defaultDepth
	}
	return &Queue{
		store:   cfg.Store,
		mgr:     cfg.Manager,
		runner:  cfg.Runner,
		results: cfg.Results,
		jobs:    make(chan string, depth),
		log:     cfg.Logger,
	}
}

// SubmitRequest is a normalized-input candidate. Nil numeric params mean
// "unset, apply the default".
type SubmitRequest struct {
	Images         [][]byte
	Prompt         string
	NegativePrompt string
	Steps          *int
	GuidanceScale  *float64
	Seed           *int64
}

// Submit validates the request, inserts a Queued record and enqueues its id.
// It returns immediately and never blocks on model state. A full queue is
// reported as ErrQueueFull and leaves no record behind.
func (q *Queue) Submit(req SubmitRequest) (string, error) {
	prompt, params, err := normalize(req)
	if err != nil {
		return "", err
	}
	u := uuid.New()
	id := hex.EncodeToString(u[:])
	q.store.Insert(store.Job{
		ID:             id,
		Status:         store.StatusQueued,
		Prompt:         prompt,
		NegativePrompt: req.NegativePrompt,
		Images:         req.Images,
		Params:         params,
		CreatedAt:      time.Now(),
	})
	select {
	case q.jobs <- id:
	default:
		q.store.Remove(id)
		return "", ErrQueueFull()
	}
	jobsSubmittedTotal.Inc()
	queueDepthGauge.Set(float64(len(q.jobs)))
	q.log.Info().Str("job_id", id).Int("images", len(req.Images)).Int("steps", params.Steps).Msg("job queued")
	return id, nil
}

// Depth returns the number of jobs currently waiting.
func (q *Queue) Depth() int { return len(q.jobs) }
