package automerge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "labelmerge"

const (
	pollCyclesMetricName    = "poll_cycles_total"
	runsMetricName          = "runs_total"
	missingChecksMetricName = "missing_required_checks"
	mergesMetricName        = "merges_total"
)

const (
	outcomeLabel     = "outcome"
	mergeMethodLabel = "merge_method"
)

type metricCollector struct {
	pollCycles    prometheus.Counter
	runs          *prometheus.CounterVec
	merges        *prometheus.CounterVec
	missingChecks prometheus.Gauge
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		pollCycles: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      pollCyclesMetricName,
				Help:      "count of evaluations of the pull request state",
			},
		),
		runs: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      runsMetricName,
				Help:      "count of finished runs by outcome",
			},
			[]string{outcomeLabel},
		),
		merges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      mergesMetricName,
				Help:      "count of merged pull requests",
			},
			[]string{mergeMethodLabel},
		),
		missingChecks: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      missingChecksMetricName,
				Help:      "count of required checks without a successful check run in the last poll cycle",
			},
		),
	}
}

func (m *metricCollector) PollCyclesInc() {
	m.pollCycles.Inc()
}

func (m *metricCollector) RunFinished(outcome Outcome) {
	m.runs.With(prometheus.Labels{outcomeLabel: outcome.String()}).Inc()
}

func (m *metricCollector) MergedInc(method string) {
	m.merges.With(prometheus.Labels{mergeMethodLabel: method}).Inc()
}

func (m *metricCollector) SetMissingChecks(cnt int) {
	m.missingChecks.Set(float64(cnt))
}
