package manager

import (
	"context"
	"time"
)

// Unload releases the model handle. While a job is borrowing the handle the
// call is refused unless force is set; a load in progress is never
// interrupted. Unloading an already-unloaded model returns ErrNotLoaded.
func (m *Manager) Unload(force bool) error {
	return m.unload(force, "manual")
}

func (m *Manager) unload(force bool, trigger string) error {
	m.mu.Lock()
	switch m.state {
	case StateUnloaded:
		m.mu.Unlock()
		return ErrNotLoaded()
	case StateLoading:
		m.mu.Unlock()
		return ErrUnloadRefused("model load in progress")
	case StateUnloading:
		// someone else is already driving the transition; wait it out
		done := m.unloadDone
		m.mu.Unlock()
		<-done
		return nil
	}
	if m.busy && !force {
		m.mu.Unlock()
		return ErrUnloadRefused("a job is running")
	}
	h := m.handle
	m.handle = nil
	m.state = StateUnloading
	done := make(chan struct{})
	m.unloadDone = done
	m.mu.Unlock()

	m.log.Info().Str("trigger", trigger).Msg("unloading model")
	err := m.loader.Unload(h)

	m.mu.Lock()
	m.state = StateUnloaded
	m.unloadDone = nil
	m.lastAccess = time.Now()
	m.mu.Unlock()
	close(done)

	modelUnloadsTotal.WithLabelValues(trigger).Inc()
	modelLoadedGauge.Set(0)
	if err != nil {
		m.log.Error().Err(err).Msg("model unload reported error")
		m.publisher.Publish(Event{Name: "unload_error", Fields: map[string]any{"error": err.Error(), "trigger": trigger}})
		return err
	}
	m.publisher.Publish(Event{Name: "unload_done", Fields: map[string]any{"trigger": trigger}})
	return nil
}

// RunReaper periodically evicts the model once it has been idle for the
// configured timeout. It never forces: the busy re-check happens inside
// unload under the same lock job execution uses, so a job that just started
// wins the race. Blocks until ctx is canceled.
func (m *Manager) RunReaper(ctx context.Context) {
	t := time.NewTicker(m.reaperTick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.mu.Lock()
			due := m.state == StateLoaded && !m.busy && time.Since(m.lastAccess) >= m.timeout
			idle := time.Since(m.lastAccess)
			m.mu.Unlock()
			if !due {
				continue
			}
			if err := m.unload(false, "idle"); err != nil {
				if !IsUnloadRefused(err) && !IsNotLoaded(err) {
					m.log.Error().Err(err).Msg("idle unload failed")
				}
				continue
			}
			m.log.Info().Dur("idle", idle).Msg("model unloaded after idle timeout")
			m.publisher.Publish(Event{Name: "reaper_unload", Fields: map[string]any{"idle_ms": int(idle / time.Millisecond)}})
		}
	}
}
