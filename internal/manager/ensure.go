package manager

import (
	"context"
	"time"
)

// EnsureLoaded returns the model handle, loading the model if necessary.
// Concurrent callers during a load wait on the same in-flight operation and
// observe the same outcome; a failed load leaves the resource Unloaded.
func (m *Manager) EnsureLoaded(ctx context.Context) (Handle, error) {
	for {
		m.mu.Lock()
		switch m.state {
		case StateLoaded:
			m.lastAccess = time.Now()
			h := m.handle
			m.mu.Unlock()
			return h, nil

		case StateLoading:
			op := m.pending
			m.mu.Unlock()
			select {
			case <-op.done:
				if op.err != nil {
					return nil, op.err
				}
				m.Touch()
				return op.handle, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		case StateUnloading:
			done := m.unloadDone
			m.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			// re-evaluate from Unloaded

		default: // StateUnloaded: this caller drives the load
			op := &loadOp{done: make(chan struct{})}
			m.pending = op
			m.state = StateLoading
			m.lastAccess = time.Now()
			m.mu.Unlock()
			return m.load(ctx, op)
		}
	}
}

func (m *Manager) load(ctx context.Context, op *loadOp) (Handle, error) {
	start := time.Now()
	m.log.Info().Float64("timeout_minutes", m.timeout.Minutes()).Msg("loading model")
	m.publisher.Publish(Event{Name: "load_start"})

	h, err := m.loader.Load(ctx)

	m.mu.Lock()
	m.pending = nil
	if err != nil {
		m.state = StateUnloaded
		op.err = err
	} else {
		m.state = StateLoaded
		m.handle = h
		m.lastAccess = time.Now()
		op.handle = h
	}
	m.mu.Unlock()
	close(op.done)

	if err != nil {
		modelLoadsTotal.WithLabelValues("error").Inc()
		m.log.Error().Err(err).Msg("model load failed")
		m.publisher.Publish(Event{Name: "load_error", Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	modelLoadsTotal.WithLabelValues("success").Inc()
	modelLoadedGauge.Set(1)
	modelLoadDuration.Observe(time.Since(start).Seconds())
	m.log.Info().Dur("dur", time.Since(start)).Msg("model loaded")
	m.publisher.Publish(Event{Name: "load_ready", Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
	return h, nil
}

// Acquire ensures the model is loaded and marks the resource busy so the
// reaper and manual unload refuse to evict it mid-job. The returned release
// func clears the busy mark and refreshes the idle timer.
func (m *Manager) Acquire(ctx context.Context) (Handle, func(), error) {
	for {
		h, err := m.EnsureLoaded(ctx)
		if err != nil {
			return nil, nil, err
		}
		m.mu.Lock()
		if m.state != StateLoaded {
			// unloaded between EnsureLoaded returning and here; retry
			m.mu.Unlock()
			continue
		}
		m.busy = true
		m.lastAccess = time.Now()
		m.mu.Unlock()
		release := func() {
			m.mu.Lock()
			m.busy = false
			m.lastAccess = time.Now()
			m.mu.Unlock()
		}
		return h, release, nil
	}
}
