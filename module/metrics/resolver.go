package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/witnessnet/witnessnet/module"
)

type ResolverCollector struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

var _ module.ResolverMetrics = (*ResolverCollector)(nil)

func NewResolverCollector(registerer prometheus.Registerer) *ResolverCollector {
	factory := promauto.With(registerer)

	return &ResolverCollector{
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "resolve_duration_seconds",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemResolver,
			Help:      "the time taken to resolve modules",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelDirection}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "resolve_failures_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemResolver,
			Help:      "the number of resolves where at least one resolver failed",
		}, []string{LabelDirection}),
	}
}

func (rc *ResolverCollector) ResolveDuration(direction string, duration time.Duration) {
	rc.duration.With(prometheus.Labels{LabelDirection: direction}).Observe(duration.Seconds())
}

func (rc *ResolverCollector) ResolveFailure(direction string) {
	rc.failures.With(prometheus.Labels{LabelDirection: direction}).Inc()
}
