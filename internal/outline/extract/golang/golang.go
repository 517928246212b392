// Package golang folds Go source files.
package golang

import (
	"context"
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

// Extractor folds function bodies, blocks, case clauses, composite literals,
// declaration groups, struct and interface types, and comment groups.
type Extractor struct {
	opts extract.Options
}

// New creates a Go extractor.
func New(opts extract.Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract implements outline.Extractor.
func (x *Extractor) Extract(ctx context.Context, snap *document.Snapshot) ([]outline.Region, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", snap.Text(), parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, parseError(snap, err)
	}
	tf := fset.File(f.Pos())
	off := func(p token.Pos) int { return tf.Offset(p) }

	col := extract.NewCollector(ctx, snap, x.opts)
	bodies := make(map[*ast.BlockStmt]bool)

	ast.Inspect(f, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		if col.Visit(x.classify(snap, n, off, bodies)) != nil {
			return false
		}
		return true
	})
	if err := col.Err(); err != nil {
		return nil, err
	}

	for _, cg := range f.Comments {
		if err := col.Visit(classifyComment(snap, cg, off)); err != nil {
			return nil, err
		}
	}
	return col.Regions(), nil
}

// classify maps one node to a classification. Function bodies are recorded
// in bodies so the nested BlockStmt visit does not fold them again.
func (x *Extractor) classify(snap *document.Snapshot, n ast.Node, off func(token.Pos) int, bodies map[*ast.BlockStmt]bool) extract.Classification {
	switch n := n.(type) {
	case *ast.FuncDecl:
		if n.Body == nil {
			return extract.NotFoldable()
		}
		bodies[n.Body] = true
		return implementation(extract.BlockRule(snap, off(n.Pos()), off(n.Body.Lbrace), off(n.Body.Rbrace)))

	case *ast.FuncLit:
		bodies[n.Body] = true
		return implementation(extract.BlockRule(snap, off(n.Pos()), off(n.Body.Lbrace), off(n.Body.Rbrace)))

	case *ast.BlockStmt:
		if bodies[n] || !n.Rbrace.IsValid() {
			return extract.NotFoldable()
		}
		lbrace := off(n.Lbrace)
		return implementation(extract.BlockRule(snap, snap.LineStart(snap.LineOf(lbrace)), lbrace, off(n.Rbrace)))

	case *ast.CaseClause:
		return caseRule(snap, off(n.Case), off(n.Colon), n.Body, off)

	case *ast.CommClause:
		return caseRule(snap, off(n.Case), off(n.Colon), n.Body, off)

	case *ast.CompositeLit:
		if !n.Rbrace.IsValid() {
			return extract.NotFoldable()
		}
		return extract.Foldable(extract.BlockRule(snap, off(n.Pos()), off(n.Lbrace), off(n.Rbrace)))

	case *ast.GenDecl:
		if !n.Lparen.IsValid() {
			return extract.NotFoldable()
		}
		rule := extract.BlockRule(snap, off(n.Pos()), off(n.Lparen), off(n.Rparen))
		if n.Tok == token.IMPORT {
			rule.Collapsed = x.opts.CollapseImports
		}
		return extract.Foldable(rule)

	case *ast.StructType:
		return fieldsRule(snap, off(n.Pos()), n.Fields, off)

	case *ast.InterfaceType:
		return fieldsRule(snap, off(n.Pos()), n.Methods, off)
	}
	return extract.NotFoldable()
}

func implementation(rule extract.SpanRule) extract.Classification {
	rule.Implementation = true
	return extract.Foldable(rule)
}

func fieldsRule(snap *document.Snapshot, start int, fl *ast.FieldList, off func(token.Pos) int) extract.Classification {
	if fl == nil || !fl.Opening.IsValid() || !fl.Closing.IsValid() {
		return extract.NotFoldable()
	}
	return extract.Foldable(extract.BlockRule(snap, start, off(fl.Opening), off(fl.Closing)))
}

// caseRule folds a case clause body below the case line.
func caseRule(snap *document.Snapshot, start, colon int, body []ast.Stmt, off func(token.Pos) int) extract.Classification {
	if len(body) == 0 {
		return extract.NotFoldable()
	}
	end := off(body[len(body)-1].End())
	return implementation(extract.SpanRule{
		Fold: text.FromBounds(snap.LineEnd(snap.LineOf(colon)), end),
		Hint: text.FromBounds(start, end),
	})
}

func classifyComment(snap *document.Snapshot, cg *ast.CommentGroup, off func(token.Pos) int) extract.Classification {
	start, end := off(cg.Pos()), off(cg.End())
	return extract.Foldable(extract.SpanRule{
		Fold: text.FromBounds(snap.LineEnd(snap.LineOf(start)), end),
		Hint: text.FromBounds(start, end),
	})
}

// parseError reports the first syntax error with the text of its line.
func parseError(snap *document.Snapshot, err error) error {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		line := list[0].Pos.Line - 1
		return outline.NewExtractError(snap.LineText(line), err)
	}
	return outline.NewExtractError("", err)
}
