// Package yamlfold folds YAML documents by mapping entry and sequence item.
package yamlfold

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

// Extractor folds block mappings, block sequences and literal scalars.
type Extractor struct {
	opts extract.Options
}

// New creates a YAML extractor.
func New(opts extract.Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract implements outline.Extractor. Every document of a multi-document
// stream is folded.
func (x *Extractor) Extract(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error) {
	col := extract.NewCollector(ctx, snap, x.opts)
	dec := yaml.NewDecoder(strings.NewReader(snap.Text()))

	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, decodeError(snap, err)
		}
		if err := walk(col, &doc); err != nil {
			return nil, err
		}
	}
	return col.Regions(), nil
}

func walk(col *extract.Collector, n *yaml.Node) error {
	if err := col.Visit(extract.NotFoldable()); err != nil {
		return err
	}

	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := walk(col, c); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i], n.Content[i+1]
			if err := col.Visit(classify(col.Snapshot(), key, value)); err != nil {
				return err
			}
			if err := walk(col, value); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.MappingNode || item.Kind == yaml.SequenceNode {
				if err := col.Visit(classify(col.Snapshot(), item, item)); err != nil {
					return err
				}
			}
			if err := walk(col, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// classify folds value below the line of head.
func classify(snap *document.Snapshot, head, value *yaml.Node) extract.Classification {
	switch value.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		if value.Style&yaml.FlowStyle != 0 {
			return extract.NotFoldable()
		}
	case yaml.ScalarNode:
		if value.Style&(yaml.LiteralStyle|yaml.FoldedStyle) == 0 {
			return extract.NotFoldable()
		}
	default:
		return extract.NotFoldable()
	}

	first := head.Line - 1
	last := lastLine(value) - 1
	if last <= first {
		return extract.NotFoldable()
	}
	return extract.Foldable(extract.SpanRule{
		Fold: text.FromBounds(snap.LineEnd(first), snap.LineEnd(last)),
		Hint: text.FromBounds(snap.Offset(first, head.Column-1), snap.LineEnd(last)),
	})
}

// lastLine returns the 1-based last line occupied by n.
func lastLine(n *yaml.Node) int {
	last := n.Line
	if n.Kind == yaml.ScalarNode && n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		last += strings.Count(strings.TrimRight(n.Value, "\n"), "\n") + 1
	}
	for _, c := range n.Content {
		last = max(last, lastLine(c))
	}
	return last
}

// decodeError reports a decode failure with the text of the failing line.
func decodeError(snap *document.Snapshot, err error) error {
	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil && line > 0 {
		return outline.NewExtractError(snap.LineText(line-1), err)
	}
	return outline.NewExtractError("", err)
}
