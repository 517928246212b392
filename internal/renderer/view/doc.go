// Package view is an interactive terminal viewer for an outlined document.
//
// The viewer draws the document with a fold gutter and lets the user move
// between lines and collapse or expand the region starting on the cursor
// line. Every frame asks the outline for the regions of the lines it draws,
// so the viewer keeps no copy of the region set.
//
// Keys:
//
//	Up, k / Down, j     previous / next visible line
//	PgUp / PgDn         one page
//	Home / End          first / last line
//	Space, Enter        toggle the fold on the cursor line
//	q, Esc, Ctrl-C      quit
package view
