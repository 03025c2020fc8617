package manager

// unloadRefusedError signals that an unload was declined for 409 mapping.
type unloadRefusedError struct{ reason string }

func (e unloadRefusedError) Error() string { return "unload refused: " + e.reason }

// ErrUnloadRefused constructs an unloadRefusedError.
func ErrUnloadRefused(reason string) error { return unloadRefusedError{reason: reason} }

// IsUnloadRefused reports whether err indicates a declined unload.
func IsUnloadRefused(err error) bool {
	_, ok := err.(unloadRefusedError)
	return ok
}

// notLoadedError signals that no model is currently loaded.
type notLoadedError struct{}

func (notLoadedError) Error() string { return "model is not loaded" }

// ErrNotLoaded constructs a notLoadedError.
func ErrNotLoaded() error { return notLoadedError{} }

// IsNotLoaded reports whether err indicates the model was not loaded.
func IsNotLoaded(err error) bool {
	_, ok := err.(notLoadedError)
	return ok
}
