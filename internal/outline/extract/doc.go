// Package extract holds the pieces shared by the language extractors.
//
// An extractor walks its syntax tree and maps every node to a
// [Classification]: [NotFoldable] or [Foldable] with a [SpanRule]. A
// [Collector] checks for cancellation on every visit, drops regions that
// span fewer than [Options.MinLines] lines (at least [BlockMinLines] for
// delimited blocks built with [BlockRule]) and builds the outline.Region
// values with the default label and a lazily rendered hint.
package extract
