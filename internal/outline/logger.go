package outline

// Logger receives errors from background work. Implementations must not
// panic; the engine recovers if they do.
type Logger interface {
	LogError(err error, context string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(err error, context string)

// LogError calls f.
func (f LoggerFunc) LogError(err error, context string) {
	f(err, context)
}

// NopLogger discards everything.
type NopLogger struct{}

// LogError does nothing.
func (NopLogger) LogError(error, string) {}

// safeLog logs through l and swallows any panic from it.
func safeLog(l Logger, err error, context string) {
	if l == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	l.LogError(err, context)
}
