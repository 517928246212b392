package outline

import "time"

// Option configures an Engine.
type Option func(*Engine)

// WithDelay sets the debounce quiescence interval.
func WithDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.delay = d
		}
	}
}

// WithLogger sets the logger for background failures.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithID sets the engine ID used in logs.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}
