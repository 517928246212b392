package app

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/outliner/internal/engine/document"
	"github.com/dshills/outliner/internal/outline"
	"github.com/dshills/outliner/internal/project/watcher"
	"github.com/dshills/outliner/internal/renderer/view"
)

// shutdownTimeout bounds a graceful shutdown.
const shutdownTimeout = 5 * time.Second

// pollInterval is how often WaitOutlined checks the engine.
const pollInterval = 10 * time.Millisecond

// startServices starts the optional components used by Run.
func (app *Application) startServices() error {
	if app.opts.Watch {
		if err := app.startWatcher(); err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
	}
	if app.config.Metrics.Addr != "" {
		app.startMetrics(app.config.Metrics.Addr)
	}
	if app.opts.Screen != nil {
		app.startViewer()
	}
	return nil
}

// startWatcher syncs external rewrites of the file into the document.
func (app *Application) startWatcher() error {
	w, err := watcher.New(app.path)
	if err != nil {
		return err
	}
	app.mu.Lock()
	app.watcher = w
	app.watchDone = make(chan struct{})
	app.mu.Unlock()

	go app.watchLoop(w, app.watchDone)
	return nil
}

func (app *Application) watchLoop(w *watcher.FileWatcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			app.handleFileEvent(ev)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			app.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// handleFileEvent reloads the file and applies the difference on the loop.
func (app *Application) handleFileEvent(ev watcher.Event) {
	if !ev.Op.Modified() {
		app.logger.Debug().Stringer("op", ev.Op).Msg("file event ignored")
		return
	}
	data, err := os.ReadFile(ev.Path)
	if err != nil {
		app.logger.Warn().Err(err).Str("path", ev.Path).Msg("reloading file")
		return
	}
	err = app.loop.Post(func() {
		changed, err := app.doc.Sync(string(data))
		if err != nil {
			app.logger.Error().Err(err).Msg("syncing document")
			return
		}
		if changed {
			app.logger.Info().Uint64("revision", uint64(app.doc.Snapshot().ID())).Msg("file reloaded")
		}
	})
	if err != nil {
		app.logger.Debug().Err(err).Msg("reload dropped")
	}
}

// startViewer creates the viewer and redraws it on every edit and change
// notification.
func (app *Application) startViewer() {
	v := view.New(app.opts.Screen, app.doc, app.engine,
		view.WithName(app.path),
		view.WithTabWidth(app.config.View.TabWidth),
		view.WithLogger(app.logger),
	)
	app.mu.Lock()
	app.viewer = v
	app.cleanups = append(app.cleanups, app.doc.Subscribe(func(document.ChangeEvent) { v.Notify() }))
	app.mu.Unlock()
}

// onChanged logs a change notification and the regions it covers. It runs
// on the loop.
func (app *Application) onChanged(c outline.Change) {
	app.logger.Info().
		Stringer("span", c.Span).
		Uint64("revision", uint64(c.Revision.ID())).
		Msg("outline changed")

	if app.logger.GetLevel() <= zerolog.DebugLevel {
		for r := range app.engine.Query(c.Span) {
			app.logger.Debug().Str("region", FormatRegion(c.Revision, r)).Msg("region")
		}
	}

	app.mu.Lock()
	v := app.viewer
	app.mu.Unlock()
	if v != nil {
		v.Notify()
	}
}

// WaitOutlined blocks until the regions reflect the current document
// revision. It fails with ErrOutlineFailed if the run for that revision
// failed.
func (app *Application) WaitOutlined(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		rev := app.doc.Snapshot().ID()
		if app.engine.Revision() == rev {
			return nil
		}
		if app.engine.Stats().LastFailedRevision == rev {
			return ErrOutlineFailed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops every component. It is safe to call more than once.
func (app *Application) Shutdown(ctx context.Context) error {
	var errs []error
	app.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		app.mu.Lock()
		w, watchDone, srv := app.watcher, app.watchDone, app.metrics
		cleanups := app.cleanups
		app.cleanups = nil
		app.mu.Unlock()

		if w != nil {
			errs = append(errs, w.Close())
			<-watchDone
		}
		if srv != nil {
			errs = append(errs, srv.Shutdown(ctx))
		}
		for _, c := range cleanups {
			c()
		}
		if err := app.loop.Do(ctx, app.engine.Dispose); err != nil {
			app.engine.Dispose()
		}
		errs = append(errs, app.loop.Stop(ctx))

		app.logger.Info().Msg("shut down")
	})
	return errors.Join(errs...)
}
