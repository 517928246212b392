// Package luafold runs user-supplied Lua scripts as extractors.
//
// A script defines a global function folds(text) that returns an array of
// tables:
//
//	function folds(text)
//	  return {
//	    { start_line = 1, end_line = 4, label = "header", collapsed = false },
//	  }
//	end
//
// Lines are 1-based and inclusive. The first line stays visible when the
// region is collapsed. Optional fields: label, collapsed, implementation.
package luafold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/engine/text"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

// EntryPoint is the global function a script must define.
const EntryPoint = "folds"

// Errors returned by script extractors.
var (
	ErrNoEntryPoint = errors.New("script does not define " + EntryPoint)
	ErrBadResult    = errors.New("script returned an invalid result")
)

// Extractor runs a compiled Lua script. Each Extract call uses a fresh Lua
// state, so an Extractor is safe for concurrent use.
type Extractor struct {
	name  string
	proto *lua.FunctionProto
	opts  extract.Options
}

// Load compiles the script at path.
func Load(path string, opts extract.Options) (*Extractor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Compile(filepath.Base(path), string(src), opts)
}

// Compile compiles src under name.
func Compile(name, src string, opts extract.Options) (*Extractor, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return &Extractor{name: name, proto: proto, opts: opts}, nil
}

// Name returns the script name.
func (x *Extractor) Name() string {
	return x.name
}

// Extract implements outline.Extractor.
func (x *Extractor) Extract(ctx context.Context, snap *document.Snapshot) (regions []outline.Region, err error) {
	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = outline.NewExtractError(x.name, fmt.Errorf("lua panic: %v", r))
		}
	}()

	L.Push(L.NewFunctionFromProto(x.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, x.fail(ctx, err)
	}

	fn := L.GetGlobal(EntryPoint)
	if fn.Type() != lua.LTFunction {
		return nil, outline.NewExtractError(x.name, ErrNoEntryPoint)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(snap.Text())); err != nil {
		return nil, x.fail(ctx, err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, outline.NewExtractError(x.name, fmt.Errorf("%w: got %s", ErrBadResult, ret.Type()))
	}

	col := extract.NewCollector(ctx, snap, x.opts)
	for i := 1; i <= tbl.Len(); i++ {
		c, err := classify(snap, tbl.RawGetInt(i))
		if err != nil {
			return nil, outline.NewExtractError(fmt.Sprintf("%s: entry %d", x.name, i), err)
		}
		if err := col.Visit(c); err != nil {
			return nil, err
		}
	}
	return col.Regions(), nil
}

// fail prefers the context error so that cancellation is not reported as a
// script failure.
func (x *Extractor) fail(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return outline.NewExtractError(x.name, err)
}

func classify(snap *document.Snapshot, v lua.LValue) (extract.Classification, error) {
	entry, ok := v.(*lua.LTable)
	if !ok {
		return extract.NotFoldable(), fmt.Errorf("%w: entry is %s", ErrBadResult, v.Type())
	}
	first, ok1 := entry.RawGetString("start_line").(lua.LNumber)
	last, ok2 := entry.RawGetString("end_line").(lua.LNumber)
	if !ok1 || !ok2 {
		return extract.NotFoldable(), fmt.Errorf("%w: start_line and end_line must be numbers", ErrBadResult)
	}

	start, end := int(first)-1, int(last)-1
	if start < 0 || end <= start || start >= snap.LineCount() {
		return extract.NotFoldable(), nil
	}
	rule := extract.SpanRule{
		Fold:           text.FromBounds(snap.LineEnd(start), snap.LineEnd(end)),
		Hint:           text.FromBounds(snap.LineStart(start), snap.LineEnd(end)),
		Collapsed:      lua.LVAsBool(entry.RawGetString("collapsed")),
		Implementation: lua.LVAsBool(entry.RawGetString("implementation")),
	}
	if label, ok := entry.RawGetString("label").(lua.LString); ok {
		rule.Label = string(label)
	}
	return extract.Foldable(rule), nil
}

// newState opens only the libraries a folding script needs.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "print"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
