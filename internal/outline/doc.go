// Package outline keeps the foldable regions of a live document current.
//
// An [Engine] listens to document edits, waits for a burst of edits to go
// quiet ([Scheduler]), then recomputes regions in the background
// ([Worker]) using a language [Extractor]. Completed runs replace the
// [Store] as a whole and report the smallest range whose regions changed to
// [ChangeListener]s on the interactive context.
//
// # Concurrency
//
// Two contexts are involved. The interactive context is a single goroutine
// reached through a [Poster]; timer firings, change notifications and host
// queries all run there. The worker context is one background goroutine at a
// time: starting a run cancels the previous run and waits for it to exit.
//
// The store is the only shared state. A run publishes only if its context
// was not cancelled, checked while holding the store's write lock, so a
// superseded run can never overwrite a newer result. Queries never wait for
// the lock: while a replacement is in progress they yield nothing.
//
// # Range queries
//
// Regions are kept sorted by start offset and may overlap. Each set also
// records the running maximum of span ends, which lets [RegionSet.Query]
// binary search to the first region that can still reach the query start and
// stop scanning at the first region starting past the query end.
package outline
