package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/witnessnet/witnessnet/module"
)

type QueryCollector struct {
	received *prometheus.CounterVec
	failed   *prometheus.CounterVec
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ module.QueryMetrics = (*QueryCollector)(nil)

func NewQueryCollector(registerer prometheus.Registerer) *QueryCollector {
	factory := promauto.With(registerer)

	qc := &QueryCollector{

		received: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "queries_received_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemModule,
			Help:      "the number of queries dispatched by modules",
		}, []string{LabelModule, LabelSchema}),

		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "queries_failed_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemModule,
			Help:      "the number of queries answered with a module error",
		}, []string{LabelModule, LabelSchema}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "queries_rejected_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemModule,
			Help:      "the number of queries refused before dispatch",
		}, []string{LabelModule, LabelReason}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "query_duration_seconds",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemModule,
			Help:      "the time taken to answer a query",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{LabelModule, LabelSchema}),
	}

	return qc
}

func (qc *QueryCollector) QueryReceived(module string, schema string) {
	qc.received.With(prometheus.Labels{LabelModule: module, LabelSchema: schema}).Inc()
}

func (qc *QueryCollector) QueryHandled(module string, schema string, duration time.Duration) {
	qc.duration.With(prometheus.Labels{LabelModule: module, LabelSchema: schema}).Observe(duration.Seconds())
}

func (qc *QueryCollector) QueryFailed(module string, schema string) {
	qc.failed.With(prometheus.Labels{LabelModule: module, LabelSchema: schema}).Inc()
}

func (qc *QueryCollector) QueryRejected(module string, reason string) {
	qc.rejected.With(prometheus.Labels{LabelModule: module, LabelReason: reason}).Inc()
}
