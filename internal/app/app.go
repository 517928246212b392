package app

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/outliner/internal/config"
	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/event/dispatch"
	"github.com/dshills/outliner/internal/metrics"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/project/watcher"
	"github.com/dshills/outliner/internal/renderer/view"
)

// Application outlines one file.
type Application struct {
	mu sync.Mutex

	opts   Options
	config *config.Config
	logger zerolog.Logger

	// Document
	path     string
	language string
	doc      *document.Document

	// Core
	loop   *dispatch.Loop
	engine *outline.Engine

	// Services started by Run
	watcher *watcher.FileWatcher
	metrics *metrics.Server
	viewer  *view.Viewer

	cleanups []func()

	running      atomic.Bool
	shutdownOnce sync.Once
	watchDone    chan struct{}
}

// Options configures the application.
type Options struct {
	// Path is the file to outline.
	Path string

	// Config is the configuration. Nil uses config.Default().
	Config *config.Config

	// Logger receives lifecycle and error logs.
	Logger zerolog.Logger

	// Screen enables the interactive viewer when set.
	Screen tcell.Screen

	// Watch syncs the document with the file when it changes on disk.
	Watch bool
}

// New opens the file and starts the outlining engine.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	app := &Application{
		opts:   opts,
		config: cfg,
		logger: opts.Logger,
		path:   opts.Path,
	}

	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Run starts the watcher, metrics endpoint and viewer, and blocks until
// ctx is done or the viewer quits. Run shuts the application down before
// returning.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)
	defer app.Shutdown(context.WithoutCancel(ctx))

	if err := app.startServices(); err != nil {
		return err
	}

	if app.viewer != nil {
		return app.viewer.Run(ctx)
	}
	<-ctx.Done()
	return nil
}

// Once waits for the outline of the current revision and writes it to w.
func (app *Application) Once(ctx context.Context, w io.Writer) error {
	if err := app.WaitOutlined(ctx); err != nil {
		return err
	}
	return WriteRegions(w, app.engine.Regions())
}

// IsRunning returns true while Run is active.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Document returns the outlined document.
func (app *Application) Document() *document.Document {
	return app.doc
}

// Engine returns the outlining engine.
func (app *Application) Engine() *outline.Engine {
	return app.engine
}

// Loop returns the interactive loop.
func (app *Application) Loop() *dispatch.Loop {
	return app.loop
}

// Language returns the name of the extractor in use.
func (app *Application) Language() string {
	return app.language
}
