// Package document provides a revisioned text document with an edit log.
//
// Every edit produces a new immutable [Snapshot] with the next [RevisionID]
// and records a [text.Edit] in a bounded history, so spans computed against
// an older snapshot can be translated forward:
//
//	doc := document.New("func main() {}\n")
//	before := doc.Snapshot()
//	doc.Insert(0, "package main\n\n")
//	edits, err := doc.EditsBetween(before.ID(), doc.Snapshot().ID())
//
// Listeners registered with [Document.Subscribe] run synchronously after each
// edit. Edits grouped with [Document.BeginComposite] and
// [Document.EndComposite] still notify per edit, and additionally send a
// [ChangeCompositeEnd] event when the outermost group closes.
//
// [Document.Sync] replaces the whole content using a line diff, which keeps
// the edit log small when a file is rewritten on disk.
package document
