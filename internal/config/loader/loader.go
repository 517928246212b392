// Package loader reads configuration layers as nested maps. Layers come
// from TOML files or the environment and are combined with Merge before
// being decoded into a typed configuration.
package loader

import (
	"io/fs"
	"os"
)

// Loader produces one configuration layer. A source that does not exist
// yields an empty layer, not an error.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem is the subset of file operations the loaders need.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (osFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// DefaultFS returns the operating system's file system.
func DefaultFS() FileSystem {
	return osFS{}
}

// Merge combines layers into a new map. Later layers win; nested maps are
// merged key by key and any other value is replaced. The inputs are not
// modified.
func Merge(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		cur, ok := dst[k].(map[string]any)
		if !ok {
			cur = make(map[string]any, len(sub))
			dst[k] = cur
		}
		mergeInto(cur, sub)
	}
}
