package app

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dshills/outliner/internal/metrics"
)

// Registry returns a registry with the engine, loop and runtime collectors.
func (app *Application) Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		metrics.NewCollector(filepath.Base(app.path), app.engine),
		metrics.NewLoopCollector(app.loop),
		collectors.NewGoCollector(),
	)
	return reg
}

// startMetrics serves the registry on addr in the background.
func (app *Application) startMetrics(addr string) {
	srv := metrics.NewServer(addr, app.Registry())
	app.mu.Lock()
	app.metrics = srv
	app.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			app.logger.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	app.logger.Info().Str("addr", addr).Msg("serving metrics")
}
