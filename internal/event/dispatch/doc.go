// Package dispatch provides the interactive execution context.
//
// A [Loop] owns a single goroutine that runs posted tasks one at a time, in
// the order they were posted. Everything that must not run concurrently with
// other interactive work (edit notifications, timer firings, change
// notifications, viewport queries) is posted to the same loop.
//
// [Loop.Post] never blocks: the queue is unbounded, so background goroutines
// can hand results to the loop even while the loop itself is waiting on them.
//
// # Panic Recovery
//
// A panicking task is recovered and reported to the [PanicHandler] set with
// [WithPanicHandler]; the loop keeps running.
//
// # Usage
//
//	loop := dispatch.NewLoop(
//	    dispatch.WithPanicHandler(func(v any, stack []byte) {
//	        logger.Error().Interface("panic", v).Bytes("stack", stack).Msg("task panicked")
//	    }),
//	)
//	loop.Start()
//	defer loop.Stop(context.Background())
//
//	loop.Post(func() { engine.Refresh() })
//	err := loop.Do(ctx, func() { regions = collect(engine.Query(viewport)) })
//
// Do and Stop must not be called from a task running on the same loop.
package dispatch
