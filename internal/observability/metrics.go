package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// rollup pipeline.
type Metrics struct {
	BallotRowsRead    prometheus.Counter
	BallotRowsJoined  prometheus.Counter
	RowsOutOfScope    *prometheus.CounterVec // label: class={overseas,abroad}
	OrphanRows        prometheus.Counter
	MalformedCodes    prometheus.Counter
	RegionsEmitted    prometheus.Gauge
	RunDuration       prometheus.Histogram
	LastRunTimestamp  prometheus.Gauge
	ResultsPublished  prometheus.Counter
	GeometryUnmatched prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BallotRowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "ballot_rows_read_total",
			Help:      "Total ballot rows read from the referendum table.",
		}),
		BallotRowsJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "ballot_rows_joined_total",
			Help:      "Ballot rows that joined to a department within scope.",
		}),
		RowsOutOfScope: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "ballot_rows_out_of_scope_total",
			Help:      "Ballot rows excluded by the scope policy, by code class.",
		}, []string{"class"}),
		OrphanRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "ballot_rows_orphan_total",
			Help:      "Ballot rows whose department code matched no department.",
		}),
		MalformedCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "ballot_rows_malformed_code_total",
			Help:      "Ballot rows excluded because the department code could not be normalized.",
		}),
		RegionsEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "referendum_rollup",
			Name:      "regions_emitted",
			Help:      "Number of region results produced by the last run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "referendum_rollup",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete normalize-join-aggregate run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "referendum_rollup",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run.",
		}),
		ResultsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "referendum_rollup",
			Name:      "results_published_total",
			Help:      "Region results published to the Kafka sink topic.",
		}),
		GeometryUnmatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "referendum_rollup",
			Name:      "geometry_unmatched",
			Help:      "Regions in the last run with no matching geometry.",
		}),
	}

	prometheus.MustRegister(
		m.BallotRowsRead,
		m.BallotRowsJoined,
		m.RowsOutOfScope,
		m.OrphanRows,
		m.MalformedCodes,
		m.RegionsEmitted,
		m.RunDuration,
		m.LastRunTimestamp,
		m.ResultsPublished,
		m.GeometryUnmatched,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BallotRowsRead:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "ballot_rows_read_total"}),
		BallotRowsJoined:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "ballot_rows_joined_total"}),
		RowsOutOfScope:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "ballot_rows_out_of_scope_total"}, []string{"class"}),
		OrphanRows:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "ballot_rows_orphan_total"}),
		MalformedCodes:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "ballot_rows_malformed_code_total"}),
		RegionsEmitted:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "referendum_rollup", Name: "regions_emitted"}),
		RunDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "referendum_rollup", Name: "run_duration_seconds"}),
		LastRunTimestamp:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "referendum_rollup", Name: "last_run_timestamp_seconds"}),
		ResultsPublished:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "referendum_rollup", Name: "results_published_total"}),
		GeometryUnmatched: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "referendum_rollup", Name: "geometry_unmatched"}),
	}
}
