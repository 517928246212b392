// Package languages picks an extractor for a file by its extension.
package languages

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
	"github.com/dshills/outliner/internal/outline/extract/brace"
	"github.com/dshills/outliner/internal/outline/extract/golang"
	"github.com/dshills/outliner/internal/outline/extract/jsonfold"
	"github.com/dshills/outliner/internal/outline/extract/luafold"
	"github.com/dshills/outliner/internal/outline/extract/yamlfold"
)

// ErrUnsupported is returned for files no extractor handles.
var ErrUnsupported = errors.New("unsupported language")

// Factory creates an extractor with the given options.
type Factory func(opts extract.Options) (outline.Extractor, error)

// Registry maps file extensions to extractor factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	names     map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		names:     make(map[string]string),
	}
}

// Default returns a registry with the built-in languages.
func Default() *Registry {
	r := NewRegistry()
	r.Register("go", fixed(func(o extract.Options) outline.Extractor { return golang.New(o) }), ".go")
	r.Register("json", fixed(func(o extract.Options) outline.Extractor { return jsonfold.New(o) }), ".json")
	r.Register("yaml", fixed(func(o extract.Options) outline.Extractor { return yamlfold.New(o) }), ".yaml", ".yml")
	r.Register("c-family", fixed(func(o extract.Options) outline.Extractor { return brace.New(o) }),
		".c", ".h", ".cc", ".cpp", ".hpp", ".cs", ".java", ".js", ".jsx", ".ts", ".tsx",
		".rs", ".swift", ".kt", ".scala", ".css", ".proto")
	return r
}

func fixed(fn func(extract.Options) outline.Extractor) Factory {
	return func(opts extract.Options) (outline.Extractor, error) {
		return fn(opts), nil
	}
}

// Register associates a named factory with extensions. Later registrations
// replace earlier ones.
func (r *Registry) Register(name string, f Factory, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		ext = normalizeExt(ext)
		r.factories[ext] = f
		r.names[ext] = name
	}
}

// RegisterScript registers a Lua script for extensions. The script is
// compiled immediately so errors surface at registration.
func (r *Registry) RegisterScript(path string, opts extract.Options, exts ...string) error {
	x, err := luafold.Load(path, opts)
	if err != nil {
		return err
	}
	r.Register("lua:"+x.Name(), func(o extract.Options) (outline.Extractor, error) {
		if o == opts {
			return x, nil
		}
		return luafold.Load(path, o)
	}, exts...)
	return nil
}

// ForFile returns an extractor for path.
func (r *Registry) ForFile(path string, opts extract.Options) (outline.Extractor, string, error) {
	ext := normalizeExt(filepath.Ext(path))

	r.mu.RLock()
	f, ok := r.factories[ext]
	name := r.names[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupported, filepath.Base(path))
	}
	x, err := f(opts)
	if err != nil {
		return nil, "", fmt.Errorf("create %s extractor: %w", name, err)
	}
	return x, name, nil
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for ext := range r.factories {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
