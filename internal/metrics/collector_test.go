package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/outliner/internal/event/dispatch"
	"github.com/dshills/outliner/internal/outline"
)

type fakeEngine outline.Stats

func (f fakeEngine) Stats() outline.Stats { return outline.Stats(f) }

type fakeLoop dispatch.LoopStats

func (f fakeLoop) Stats() dispatch.LoopStats { return dispatch.LoopStats(f) }

func gather(t *testing.T, c prometheus.Collector) map[string]*dto.Metric {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.Metric)
	for _, f := range families {
		require.Len(t, f.GetMetric(), 1)
		out[f.GetName()] = f.GetMetric()[0]
	}
	return out
}

func TestCollector(t *testing.T) {
	m := gather(t, NewCollector("main.go", fakeEngine{
		Runs:            7,
		Published:       5,
		Cancelled:       1,
		Failed:          1,
		Notifications:   4,
		Queries:         20,
		DeclinedQueries: 2,
		LastDuration:    250 * time.Millisecond,
		Regions:         12,
	}))

	require.Len(t, m, 9)
	assert.Equal(t, 7.0, m["outliner_engine_runs_total"].GetCounter().GetValue())
	assert.Equal(t, 5.0, m["outliner_engine_published_total"].GetCounter().GetValue())
	assert.Equal(t, 2.0, m["outliner_engine_declined_queries_total"].GetCounter().GetValue())
	assert.Equal(t, 0.25, m["outliner_engine_last_run_seconds"].GetGauge().GetValue())
	assert.Equal(t, 12.0, m["outliner_engine_regions"].GetGauge().GetValue())

	labels := m["outliner_engine_runs_total"].GetLabel()
	require.Len(t, labels, 1)
	assert.Equal(t, "document", labels[0].GetName())
	assert.Equal(t, "main.go", labels[0].GetValue())
}

func TestLoopCollector(t *testing.T) {
	m := gather(t, NewLoopCollector(fakeLoop{
		Posted:      10,
		Processed:   9,
		Panicked:    1,
		QueueDepth:  1,
		AvgDuration: time.Millisecond,
	}))

	require.Len(t, m, 6)
	assert.Equal(t, 10.0, m["outliner_loop_posted_total"].GetCounter().GetValue())
	assert.Equal(t, 1.0, m["outliner_loop_queue_depth"].GetGauge().GetValue())
	assert.Equal(t, 0.001, m["outliner_loop_task_avg_seconds"].GetGauge().GetValue())
}

func TestCollector_LiveEngineAndLoop(t *testing.T) {
	loop := dispatch.NewLoop()
	require.NoError(t, loop.Start())
	defer loop.Stop(t.Context())

	m := gather(t, NewLoopCollector(loop))
	assert.Contains(t, m, "outliner_loop_processed_total")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector("a.json", fakeEngine{Runs: 3}))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `outliner_engine_runs_total{document="a.json"} 3`)
}
