// Package manager owns the lifecycle of the singleton model resource: it
// loads the model on first use (single-flight across concurrent callers),
// tracks last-access time, evicts the model after a configurable idle
// period, and supports manual unload. The worker borrows the handle for the
// duration of one inference via Acquire; nothing else touches it directly.
package manager
