package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/event/dispatch"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/outline/extract"
	"github.com/dshills/outliner/internal/outline/languages"
)

// startTimeout bounds waiting on the loop during bootstrap.
const startTimeout = 5 * time.Second

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	extractor outline.Extractor
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 4),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{"document", b.initDocument},
		{"extractor", b.initExtractor},
		{"loop", b.initLoop},
		{"engine", b.initEngine},
	}
	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

// initDocument reads the file into a document.
func (b *bootstrapper) initDocument() error {
	data, err := os.ReadFile(b.app.path)
	if err != nil {
		return &FileError{Op: "open", Path: b.app.path, Err: err}
	}
	b.app.doc = document.New(string(data))
	return nil
}

// initExtractor picks the extractor by file extension.
func (b *bootstrapper) initExtractor() error {
	opts := extractOptions(b.app.config.Outline.MinLines, b.app.config.Outline.CollapseImports)

	registry := languages.Default()
	for ext, script := range b.app.config.Languages.Scripts {
		if err := registry.RegisterScript(script, opts, ext); err != nil {
			return err
		}
	}

	x, name, err := registry.ForFile(b.app.path, opts)
	if err != nil {
		return err
	}
	b.extractor = x
	b.app.language = name
	return nil
}

// initLoop starts the interactive loop.
func (b *bootstrapper) initLoop() error {
	b.app.loop = dispatch.NewLoop(dispatch.WithPanicHandler(panicLogger(b.app.logger)))
	return b.app.loop.Start()
}

// initEngine creates and starts the outlining engine and registers the
// change listener on the loop.
func (b *bootstrapper) initEngine() error {
	app := b.app
	engine, err := outline.New(app.doc, b.extractor, app.loop,
		outline.WithDelay(app.config.Outline.Debounce()),
		outline.WithLogger(NewErrorLogger(app.logger)),
	)
	if err != nil {
		return err
	}
	app.engine = engine
	app.logger = app.logger.With().Str("engine", engine.ID()).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	var remove func()
	if err := app.loop.Do(ctx, func() { remove = engine.OnChanged(app.onChanged) }); err != nil {
		return err
	}
	app.cleanups = append(app.cleanups, remove)

	if err := engine.Start(); err != nil {
		return err
	}

	snap := app.doc.Snapshot()
	app.logger.Info().
		Str("path", filepath.Clean(app.path)).
		Str("language", app.language).
		Int("lines", snap.LineCount()).
		Int("bytes", snap.Len()).
		Msg("file opened")
	return nil
}

// cleanup stops already-initialized components.
func (b *bootstrapper) cleanup() {
	if b.app.engine != nil {
		b.app.engine.Dispose()
	}
	if slices.Contains(b.initOrder, "loop") {
		ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
		defer cancel()
		_ = b.app.loop.Stop(ctx)
	}
}

func extractOptions(minLines int, collapseImports bool) extract.Options {
	opts := extract.DefaultOptions()
	if minLines > 0 {
		opts.MinLines = minLines
	}
	opts.CollapseImports = collapseImports
	return opts
}
