package queue

import (
	"context"
	"fmt"
	"time"

	"editd/internal/infer"
	"editd/internal/manager"
	"editd/internal/store"
)

// RunWorker drains the queue until ctx is canceled. It is the only goroutine
// allowed to move a job out of Queued, which is what serializes all access
// to the model instance. Job failures are recorded and the loop keeps going.
func (q *Queue) RunWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-q.jobs:
			queueDepthGauge.Set(float64(len(q.jobs)))
			q.process(ctx, id)
		}
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	j, err := q.store.Get(id)
	if err != nil {
		q.log.Error().Err(err).Str("job_id", id).Msg("dequeued unknown job")
		return
	}
	if err := q.store.MarkRunning(id); err != nil {
		q.log.Error().Err(err).Str("job_id", id).Msg("mark running")
		return
	}
	start := time.Now()

	handle, release, err := q.mgr.Acquire(ctx)
	if err != nil {
		q.finishFailed(id, fmt.Sprintf("model load failed: %v", err), start)
		return
	}
	// release clears the busy mark and refreshes the manager's idle timer
	// whatever the outcome below.
	defer release()

	out, err := q.runInference(ctx, handle, j)
	if err != nil {
		q.finishFailed(id, err.Error(), start)
		return
	}
	name, err := q.results.Save(id, out)
	if err != nil {
		q.finishFailed(id, fmt.Sprintf("persist result: %v", err), start)
		return
	}
	if err := q.store.MarkSucceeded(id, name); err != nil {
		q.log.Error().Err(err).Str("job_id", id).Msg("mark succeeded")
		return
	}
	jobsCompletedTotal.WithLabelValues(string(store.StatusSucceeded)).Inc()
	jobDuration.Observe(time.Since(start).Seconds())
	q.log.Info().Str("job_id", id).Dur("dur", time.Since(start)).Str("result", name).Msg("job succeeded")
}

// runInference invokes the opaque inference call with panic containment: a
// bad job must never take the worker loop down.
func (q *Queue) runInference(ctx context.Context, handle manager.Handle, j store.Job) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("inference panic: %v", r)
		}
	}()
	req := infer.Request{
		Images:         j.Images,
		Prompt:         j.Prompt,
		NegativePrompt: j.NegativePrompt,
		Steps:          j.Params.Steps,
		GuidanceScale:  j.Params.GuidanceScale,
		Seed:           j.Params.Seed,
	}
	onProgress := func(pct float64) {
		if uerr := q.store.SetProgress(j.ID, pct); uerr != nil {
			q.log.Warn().Err(uerr).Str("job_id", j.ID).Msg("progress update dropped")
		}
	}
	return q.runner.Run(ctx, handle, req, onProgress)
}

func (q *Queue) finishFailed(id, msg string, start time.Time) {
	if err := q.store.MarkFailed(id, msg); err != nil {
		q.log.Error().Err(err).Str("job_id", id).Msg("mark failed")
		return
	}
	jobsCompletedTotal.WithLabelValues(string(store.StatusFailed)).Inc()
	jobDuration.Observe(time.Since(start).Seconds())
	q.log.Warn().Str("job_id", id).Str("error", msg).Msg("job failed")
}
