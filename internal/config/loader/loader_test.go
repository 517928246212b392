package loader

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLFile_Read(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/outliner.toml", `
[outline]
debounce_ms = 500
collapse_imports = true

[languages.scripts]
md = "md.lua"
`)

	tf := NewTOMLFile(memfs, 4)
	cfg, err := tf.Read("/outliner.toml")
	require.NoError(t, err)

	outline := cfg["outline"].(map[string]any)
	assert.Equal(t, int64(500), outline["debounce_ms"])
	assert.Equal(t, true, outline["collapse_imports"])
	scripts := cfg["languages"].(map[string]any)["scripts"].(map[string]any)
	assert.Equal(t, "md.lua", scripts["md"])
	assert.Equal(t, []string{"/outliner.toml"}, tf.Sources)
}

func TestTOMLFile_Missing(t *testing.T) {
	cfg, err := NewTOMLFile(NewMemFS(), 4).Read("/none.toml")
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestTOMLFile_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[outline]\ndebounce_ms = = 3\n")

	_, err := NewTOMLFile(memfs, 4).Read("/bad.toml")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "/bad.toml", perr.Path)
	assert.Equal(t, 2, perr.Line)
	assert.Contains(t, perr.Error(), "/bad.toml:2:")
}

func TestTOMLFile_Includes(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/cfg/base.toml", "[outline]\nmin_lines = 3\ndebounce_ms = 100\n")
	memfs.AddFile("/cfg/log.toml", "[log]\nlevel = \"debug\"\n[outline]\nmin_lines = 5\n")
	memfs.AddFile("/cfg/main.toml", "include = [\"base.toml\", \"log.toml\"]\n[outline]\ndebounce_ms = 900\n")

	tf := NewTOMLFile(memfs, 4)
	cfg, err := tf.Read("/cfg/main.toml")
	require.NoError(t, err)

	outline := cfg["outline"].(map[string]any)
	assert.Equal(t, int64(5), outline["min_lines"])
	assert.Equal(t, int64(900), outline["debounce_ms"])
	assert.Equal(t, "debug", cfg["log"].(map[string]any)["level"])
	assert.NotContains(t, cfg, IncludeKey)
	assert.Equal(t, []string{"/cfg/base.toml", "/cfg/log.toml", "/cfg/main.toml"}, tf.Sources)
}

func TestTOMLFile_IncludeErrors(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/a.toml", "include = \"b.toml\"\n")
	memfs.AddFile("/b.toml", "include = \"a.toml\"\n")
	memfs.AddFile("/n.toml", "include = 3\n")
	memfs.AddFile("/d1.toml", "include = \"d2.toml\"\n")
	memfs.AddFile("/d2.toml", "include = \"d3.toml\"\n")
	memfs.AddFile("/d3.toml", "x = 1\n")

	_, err := NewTOMLFile(memfs, 8).Read("/a.toml")
	assert.ErrorIs(t, err, ErrIncludeCycle)

	_, err = NewTOMLFile(memfs, 8).Read("/n.toml")
	assert.ErrorIs(t, err, ErrIncludeType)

	_, err = NewTOMLFile(memfs, 2).Read("/d1.toml")
	assert.ErrorIs(t, err, ErrIncludeDepth)

	cfg, err := NewTOMLFile(memfs, 3).Read("/d1.toml")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg["x"])
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader(DefaultEnvPrefix)
	l.environ = func() []string {
		return []string{
			"OUTLINER_OUTLINE_MIN_LINES=3",
			"OUTLINER_OUTLINE_COLLAPSE_IMPORTS=yes",
			"OUTLINER_LOG_FORMAT=json",
			"OUTLINER_DEBOUNCE=250",
			"OUTLINER_BOGUS=1",
			"HOME=/root",
		}
	}

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"outline": map[string]any{
			"min_lines":        int64(3),
			"collapse_imports": true,
			"debounce_ms":      int64(250),
		},
		"log": map[string]any{
			"format": "json",
		},
	}, cfg)
}

func TestMerge(t *testing.T) {
	dst := map[string]any{"outline": map[string]any{"min_lines": 2, "debounce_ms": 10}}
	src := map[string]any{"outline": map[string]any{"debounce_ms": 20}, "log": "x"}

	got := Merge(dst, src)
	assert.Equal(t, map[string]any{
		"outline": map[string]any{"min_lines": 2, "debounce_ms": 20},
		"log":     "x",
	}, got)
	assert.Equal(t, 10, dst["outline"].(map[string]any)["debounce_ms"])
	assert.Empty(t, Merge(nil, nil))
}
