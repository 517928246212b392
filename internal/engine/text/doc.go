// Package text provides byte spans and edit logs for tracking ranges across
// document revisions.
//
// A [Span] is only meaningful together with the revision it was taken from.
// Moving a span to a later revision is a pure function over the ordered list
// of [Edit] values applied in between:
//
//	later := text.TranslateSpan(span, edits)
//
// Translation is edge-exclusive: text inserted exactly at either edge of a
// span is not absorbed by it, while edits inside the span grow or shrink it.
package text
