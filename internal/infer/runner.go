// Package infer is the opaque inference boundary: the queue worker hands a
// borrowed model handle plus request parameters to a Runner and gets result
// bytes back. Implementations must report progress through the callback and
// return when the context is canceled.
package infer

import (
	"context"

	"editd/internal/manager"
)

// Request carries everything one edit needs. Images are ordered; the model
// refers to them positionally.
type Request struct {
	Images         [][]byte
	Prompt         string
	NegativePrompt string
	Steps          int
	GuidanceScale  float64
	Seed           *int64
}

// Progress reports completion percentage in [0,100]. Implementations may
// call it from any goroutine; callers must make it safe for that.
type Progress func(pct float64)

// Runner executes one inference against a loaded model.
type Runner interface {
	Run(ctx context.Context, h manager.Handle, req Request, onProgress Progress) ([]byte, error)
}

// dependencyUnavailableError signals a missing external dependency (the
// inference worker) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed
// runtime dependency.
func IsDependencyUnavailable(err error) bool {
	_, ok := err.(dependencyUnavailableError)
	return ok
}
