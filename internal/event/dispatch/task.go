package dispatch

import (
	"runtime/debug"
	"time"
)

// Task is a unit of work run on the loop.
type Task = func()

// Result describes one task run.
type Result struct {
	Duration time.Duration

	// Panicked is set when the task panicked. PanicValue and PanicStack hold
	// the recovered value and the stack at the point of the panic.
	Panicked   bool
	PanicValue any
	PanicStack []byte
}

// PanicHandler receives a recovered panic value and its stack.
type PanicHandler func(value any, stack []byte)

// runTask runs task, recovering any panic and reporting it to onPanic.
// A panic inside onPanic is swallowed.
func runTask(task Task, onPanic PanicHandler) (r Result) {
	start := time.Now()
	defer func() {
		r.Duration = time.Since(start)
		v := recover()
		if v == nil {
			return
		}
		r.Panicked, r.PanicValue, r.PanicStack = true, v, debug.Stack()
		if onPanic != nil {
			reportPanic(onPanic, v, r.PanicStack)
		}
	}()
	task()
	return r
}

func reportPanic(h PanicHandler, v any, stack []byte) {
	defer func() { _ = recover() }()
	h(v, stack)
}
