package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// IncludeKey is the top-level key listing files merged beneath a file.
const IncludeKey = "include"

// Include errors.
var (
	ErrIncludeDepth = errors.New("include depth exceeded")
	ErrIncludeCycle = errors.New("include cycle")
	ErrIncludeType  = errors.New("include must be a string or an array of strings")
)

// TOMLFile reads a TOML file together with the files it includes.
//
// Included paths are relative to the including file. A file's own keys take
// precedence over anything it includes, and later includes take precedence
// over earlier ones.
type TOMLFile struct {
	fs       FileSystem
	maxDepth int

	// Sources lists every file read by the last Read, in merge order.
	Sources []string
}

// NewTOMLFile creates a reader that follows at most maxDepth nested includes.
func NewTOMLFile(fsys FileSystem, maxDepth int) *TOMLFile {
	if fsys == nil {
		fsys = DefaultFS()
	}
	return &TOMLFile{fs: fsys, maxDepth: maxDepth}
}

// Read returns the merged map for path, or nil if path does not exist.
func (t *TOMLFile) Read(path string) (map[string]any, error) {
	t.Sources = t.Sources[:0]
	return t.read(filepath.Clean(path), t.maxDepth, map[string]bool{})
}

func (t *TOMLFile) read(path string, depth int, open map[string]bool) (map[string]any, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepth, path)
	}
	if open[path] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, path)
	}

	m, err := t.decode(path)
	if err != nil || m == nil {
		return nil, err
	}

	incs, err := includes(m[IncludeKey])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	delete(m, IncludeKey)

	open[path] = true
	defer delete(open, path)

	var base map[string]any
	for _, inc := range incs {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		sub, err := t.read(filepath.Clean(inc), depth-1, open)
		if err != nil {
			return nil, fmt.Errorf("include from %s: %w", path, err)
		}
		base = Merge(base, sub)
	}
	t.Sources = append(t.Sources, path)
	return Merge(base, m), nil
}

func (t *TOMLFile) decode(path string) (map[string]any, error) {
	data, err := t.fs.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := map[string]any{}
	if err := toml.Unmarshal(data, &m); err != nil {
		perr := &ParseError{Path: path, Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return nil, perr
	}
	return m, nil
}

func includes(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d is %T", ErrIncludeType, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrIncludeType, v)
	}
}

// ParseError reports malformed TOML.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
