package brace

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
)

func extractFirstLines(t *testing.T, src string) []string {
	t.Helper()
	regions, err := New(extract.DefaultOptions()).Extract(context.Background(), document.New(src).Snapshot())
	require.NoError(t, err)
	outline.SortRegions(regions)

	out := make([]string, len(regions))
	for i, r := range regions {
		out[i], _, _ = strings.Cut(r.Hint.String(), "\n")
	}
	return out
}

func TestExtractor_Blocks(t *testing.T) {
	src := `class Program
{
    static void Main()
    {
        var xs = new[] {
            1, 2,
        };
        switch (xs.Length)
        {
            case 1: break;
        }
        if (true) { return; }
    }
}
`
	assert.Equal(t, []string{
		"class Program",
		"static void Main()",
		"var xs = new[] {",
		"switch (xs.Length)",
	}, extractFirstLines(t, src))
}

func TestExtractor_SkipsStringsAndComments(t *testing.T) {
	src := "int f() {\n" +
		"  s = \"{ not a block\";\n" +
		"  c = '{';\n" +
		"  // {\n" +
		"  t = `{\n}`;\n" +
		"}\n" +
		"/* a\n   b { */\n"
	assert.Equal(t, []string{"int f() {", "/* a"}, extractFirstLines(t, src))
}

func TestExtractor_Unbalanced(t *testing.T) {
	src := "}\nvoid f() {\n  x;\n}\n{\n"
	assert.Equal(t, []string{"void f() {"}, extractFirstLines(t, src))
}

func TestExtractor_FoldKeepsHeaderVisible(t *testing.T) {
	snap := document.New("void f() {\n  x;\n}\n").Snapshot()
	regions, err := New(extract.DefaultOptions()).Extract(context.Background(), snap)
	require.NoError(t, err)
	require.Len(t, regions, 1)

	assert.Equal(t, "\n  x;\n}", snap.Slice(regions[0].Span))
	assert.True(t, regions[0].Implementation)
}

func TestExtractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(extract.DefaultOptions()).Extract(ctx, document.New("a {\n}\n").Snapshot())
	assert.ErrorIs(t, err, context.Canceled)
}
