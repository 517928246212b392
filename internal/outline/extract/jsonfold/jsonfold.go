// Package jsonfold folds JSON objects and arrays.
package jsonfold

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

// ErrInvalidJSON is returned for documents that are not valid JSON.
var ErrInvalidJSON = errors.New("invalid json")

// Extractor folds every multi-line object and array.
type Extractor struct {
	opts extract.Options
}

// New creates a JSON extractor.
func New(opts extract.Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract implements outline.Extractor.
func (x *Extractor) Extract(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error) {
	s := snap.Text()
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if !gjson.Valid(s) {
		return nil, invalid(snap)
	}

	col := extract.NewCollector(ctx, snap, x.opts)
	root := gjson.Parse(s)
	// The root keeps any trailing whitespace in Raw.
	root.Raw = strings.TrimRightFunc(root.Raw, unicode.IsSpace)

	if err := walk(col, root, root.Index); err != nil {
		return nil, err
	}
	return col.Regions(), nil
}

// walk folds v and its descendants. hintStart is the offset of the key that
// names v, or v's own offset.
func walk(col *extract.Collector, v gjson.Result, hintStart int) error {
	if !v.IsObject() && !v.IsArray() {
		return col.Visit(extract.NotFoldable())
	}
	open := v.Index
	close := open + len(v.Raw) - 1
	if err := col.Visit(extract.Foldable(extract.BlockRule(col.Snapshot(), hintStart, open, close))); err != nil {
		return err
	}

	var err error
	v.ForEach(func(key, value gjson.Result) bool {
		start := value.Index
		if v.IsObject() {
			start = key.Index
		}
		err = walk(col, value, start)
		return err == nil
	})
	return err
}

// invalid locates the syntax error and reports the text of its line.
func invalid(snap *document.Snapshot) error {
	var syn *json.SyntaxError
	if err := json.Unmarshal([]byte(snap.Text()), new(json.RawMessage)); errors.As(err, &syn) {
		line := snap.LineOf(int(syn.Offset) - 1)
		return outline.NewExtractError(snap.LineText(line), errors.Join(ErrInvalidJSON, err))
	}
	return outline.NewExtractError("", ErrInvalidJSON)
}
