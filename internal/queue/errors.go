package queue

import "fmt"

// validationError is any synchronous rejection of a submission; no job is
// created for these. The HTTP layer maps them to 400.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

// IsValidation reports whether err is a submission validation failure.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// ErrMissingImage rejects a submission with no images.
func ErrMissingImage() error { return validationError{msg: "missing required image"} }

// ErrTooManyImages rejects a submission exceeding the image limit.
func ErrTooManyImages(n int) error {
	return validationError{msg: fmt.Sprintf("too many images: %d (max %d)", n, maxImages)}
}

// ErrInvalidImage rejects a buffer that does not decode as a supported
// raster format. Index is 1-based, matching the public file/file2/file3
// field names.
func ErrInvalidImage(index int) error {
	return validationError{msg: fmt.Sprintf("invalid image %d", index)}
}

// ErrInvalidPrompt rejects an empty prompt.
func ErrInvalidPrompt() error { return validationError{msg: "prompt is required"} }

// queueFullError signals backpressure for 429 mapping.
type queueFullError struct{}

func (queueFullError) Error() string { return "job queue is full" }

// ErrQueueFull constructs a queueFullError.
func ErrQueueFull() error { return queueFullError{} }

// IsQueueFull reports whether err indicates backpressure (return 429).
func IsQueueFull(err error) bool {
	_, ok := err.(queueFullError)
	return ok
}
