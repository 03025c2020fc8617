package manager

import "context"

// State represents the lifecycle state of the model resource.
type State string

const (
	StateUnloaded  State = "unloaded"
	StateLoading   State = "loading"
	StateLoaded    State = "loaded"
	StateUnloading State = "unloading"
)

// Handle is an opaque reference to a loaded model. It is produced by a
// Loader and only ever passed back to the same Loader or to a Runner.
type Handle interface{}

// Loader abstracts the expensive load/release of the model resource.
// Concrete implementations (subprocess worker, test stub) satisfy this.
type Loader interface {
	// Load brings the model up. It may block for a long time; it must
	// return promptly when ctx is canceled.
	Load(ctx context.Context) (Handle, error)
	// Unload releases a handle previously returned by Load.
	Unload(h Handle) error
}

// Status is a read-only snapshot of the resource state. Building it never
// blocks on a pending load or unload.
type Status struct {
	State                  State
	Loaded                 bool
	Busy                   bool
	TimeoutMinutes         float64
	MinutesSinceLastAccess float64
	// Nil unless the model is loaded.
	MinutesUntilUnload *float64
}
