package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/outliner/internal/event/dispatch"
	"github.com/dshills/outliner/internal/outline"
)

const namespace = "outliner"

// StatsSource provides engine statistics.
type StatsSource interface {
	Stats() outline.Stats
}

// LoopStatsSource provides interactive loop statistics.
type LoopStatsSource interface {
	Stats() dispatch.LoopStats
}

// Collector reports the statistics of one outlining engine.
type Collector struct {
	source StatsSource

	runs          *prometheus.Desc
	published     *prometheus.Desc
	cancelled     *prometheus.Desc
	failed        *prometheus.Desc
	notifications *prometheus.Desc
	queries       *prometheus.Desc
	declined      *prometheus.Desc
	lastDuration  *prometheus.Desc
	regions       *prometheus.Desc
}

// NewCollector creates a collector for source. name becomes the "document"
// label on every series.
func NewCollector(name string, source StatsSource) *Collector {
	labels := prometheus.Labels{"document": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "engine", metric), help, nil, labels)
	}
	return &Collector{
		source:        source,
		runs:          desc("runs_total", "Recompute runs started."),
		published:     desc("published_total", "Recompute runs that replaced the region store."),
		cancelled:     desc("cancelled_total", "Recompute runs superseded before publishing."),
		failed:        desc("failed_total", "Recompute runs aborted by an extraction error."),
		notifications: desc("notifications_total", "Change notifications delivered to listeners."),
		queries:       desc("queries_total", "Range queries received."),
		declined:      desc("declined_queries_total", "Range queries declined during a store replacement."),
		lastDuration:  desc("last_run_seconds", "Duration of the most recent recompute run."),
		regions:       desc("regions", "Regions currently stored."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runs
	ch <- c.published
	ch <- c.cancelled
	ch <- c.failed
	ch <- c.notifications
	ch <- c.queries
	ch <- c.declined
	ch <- c.lastDuration
	ch <- c.regions
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.runs, s.Runs)
	counter(c.published, s.Published)
	counter(c.cancelled, s.Cancelled)
	counter(c.failed, s.Failed)
	counter(c.notifications, s.Notifications)
	counter(c.queries, s.Queries)
	counter(c.declined, s.DeclinedQueries)
	ch <- prometheus.MustNewConstMetric(c.lastDuration, prometheus.GaugeValue, s.LastDuration.Seconds())
	ch <- prometheus.MustNewConstMetric(c.regions, prometheus.GaugeValue, float64(s.Regions))
}

// LoopCollector reports the statistics of the interactive loop.
type LoopCollector struct {
	source LoopStatsSource

	posted     *prometheus.Desc
	processed  *prometheus.Desc
	panicked   *prometheus.Desc
	rejected   *prometheus.Desc
	queueDepth *prometheus.Desc
	avgTask    *prometheus.Desc
}

// NewLoopCollector creates a collector for source.
func NewLoopCollector(source LoopStatsSource) *LoopCollector {
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "loop", metric), help, nil, nil)
	}
	return &LoopCollector{
		source:     source,
		posted:     desc("posted_total", "Tasks posted to the loop."),
		processed:  desc("processed_total", "Tasks executed by the loop."),
		panicked:   desc("panicked_total", "Tasks that panicked."),
		rejected:   desc("rejected_total", "Tasks rejected because the loop was stopped."),
		queueDepth: desc("queue_depth", "Tasks waiting to run."),
		avgTask:    desc("task_avg_seconds", "Average task duration."),
	}
}

// Describe implements prometheus.Collector.
func (c *LoopCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.posted
	ch <- c.processed
	ch <- c.panicked
	ch <- c.rejected
	ch <- c.queueDepth
	ch <- c.avgTask
}

// Collect implements prometheus.Collector.
func (c *LoopCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.posted, prometheus.CounterValue, float64(s.Posted))
	ch <- prometheus.MustNewConstMetric(c.processed, prometheus.CounterValue, float64(s.Processed))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(s.Panicked))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(s.Rejected))
	ch <- prometheus.MustNewConstMetric(c.queueDepth, prometheus.GaugeValue, float64(s.QueueDepth))
	ch <- prometheus.MustNewConstMetric(c.avgTask, prometheus.GaugeValue, s.AvgDuration.Seconds())
}

var (
	_ prometheus.Collector = (*Collector)(nil)
	_ prometheus.Collector = (*LoopCollector)(nil)
)
