package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running loop.
	ErrAlreadyRunning = errors.New("loop is already running")

	// ErrNotRunning is returned when work is posted to a loop that is not running.
	ErrNotRunning = errors.New("loop is not running")

	// ErrTaskPanicked is returned by Do when the task panicked.
	ErrTaskPanicked = errors.New("task panicked")
)
