// Package metrics exposes outlining engine and interactive loop statistics
// to Prometheus.
//
// Collectors read a Stats snapshot on every scrape, so they add no work to
// the engine's hot paths:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector("main.go", engine))
//	reg.MustRegister(metrics.NewLoopCollector(loop))
//	srv := metrics.NewServer(":9090", reg)
//	go srv.ListenAndServe()
package metrics
