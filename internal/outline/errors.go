package outline

import (
	"errors"
	"fmt"
)

// Errors returned by the outlining engine.
var (
	ErrDisposed       = errors.New("engine disposed")
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotStarted     = errors.New("engine not started")
	ErrNilExtractor   = errors.New("extractor is nil")
	ErrNilSource      = errors.New("source is nil")
	ErrNilPoster      = errors.New("poster is nil")
	ErrExtractPanic   = errors.New("extractor panicked")
)

// ExtractError reports an extraction failure together with the text of the
// node that caused it.
type ExtractError struct {
	// Context is the offending node's text.
	Context string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("extract: %v", e.Err)
	}
	return fmt.Sprintf("extract %q: %v", e.Context, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// NewExtractError wraps err with the offending node text.
func NewExtractError(context string, err error) *ExtractError {
	return &ExtractError{Context: context, Err: err}
}
