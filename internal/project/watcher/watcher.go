// Package watcher reports changes to a single file on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by writing a temporary file and renaming it over the
// original are still observed. Bursts of events are coalesced into one
// Event per quiet period.
package watcher

import (
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
	ErrIsDirectory   = errors.New("path is a directory")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates the file was created, including by a rename over it.
	OpCreate Op = 1 << iota
	// OpWrite indicates the file was written to.
	OpWrite
	// OpRemove indicates the file was removed.
	OpRemove
	// OpRename indicates the file was renamed away.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	case OpChmod:
		return "CHMOD"
	case 0:
		return "NONE"
	default:
		return "MULTIPLE"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Modified returns true if the file content may have changed.
func (op Op) Modified() bool {
	return op&(OpCreate|OpWrite) != 0
}

// Event represents a coalesced change to the watched file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op is the union of the operations seen during the quiet period.
	Op Op

	// Timestamp is when the event was delivered.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	// RawEvents is the number of file system events for the file.
	RawEvents int64

	// Delivered is the number of coalesced events sent.
	Delivered int64

	// Dropped is the number of events lost to a full channel.
	Dropped int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// Config holds watcher configuration options.
type Config struct {
	// DebounceDelay is the quiet period before an event is delivered.
	// Default: 100ms
	DebounceDelay time.Duration

	// BufferSize is the size of the event and error channels.
	// Default: 16
	BufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		BufferSize:    16,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounceDelay sets the debounce delay.
func WithDebounceDelay(d time.Duration) Option {
	return func(c *Config) {
		c.DebounceDelay = d
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) Option {
	return func(c *Config) {
		c.BufferSize = size
	}
}
