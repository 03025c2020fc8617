package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTimeout    = 30 * time.Minute
	defaultReaperTick = time.Minute
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Loader Loader
	// Idle period before the reaper unloads the model.
	Timeout time.Duration
	// Reaper wake interval; shortened in tests.
	ReaperTick time.Duration
	Publisher  EventPublisher
	Logger     zerolog.Logger
}

// loadOp is the shared in-flight load: the first caller into Unloaded
// creates it, concurrent callers wait on done and read the same outcome.
type loadOp struct {
	done   chan struct{}
	handle Handle
	err    error
}

type Manager struct {
	mu         sync.Mutex
	state      State
	handle     Handle
	pending    *loadOp       // non-nil iff state == StateLoading
	unloadDone chan struct{} // non-nil iff state == StateUnloading
	busy       bool          // a job is borrowing the handle
	lastAccess time.Time

	loader     Loader
	timeout    time.Duration
	reaperTick time.Duration
	publisher  EventPublisher
	log        zerolog.Logger
}

// New constructs a Manager in the Unloaded state.
func New(cfg Config) *Manager {
	m := &Manager{
		state:      StateUnloaded,
		loader:     cfg.Loader,
		timeout:    cfg.Timeout,
		reaperTick: cfg.ReaperTick,
		publisher:  cfg.Publisher,
		log:        cfg.Logger,
		lastAccess: time.Now(),
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	if m.reaperTick <= 0 {
		m.reaperTick = defaultReaperTick
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}

// Touch refreshes the idle timer. The worker calls this after every job,
// regardless of outcome.
func (m *Manager) Touch() {
	m.mu.Lock()
	m.lastAccess = time.Now()
	m.mu.Unlock()
}

// Status returns a best-effort snapshot without blocking on pending
// transitions.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		State:                  m.state,
		Loaded:                 m.state == StateLoaded,
		Busy:                   m.busy,
		TimeoutMinutes:         m.timeout.Minutes(),
		MinutesSinceLastAccess: time.Since(m.lastAccess).Minutes(),
	}
	if st.Loaded {
		left := m.timeout.Minutes() - st.MinutesSinceLastAccess
		if left < 0 {
			left = 0
		}
		st.MinutesUntilUnload = &left
	}
	return st
}
