package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/witnessnet/witnessnet/module"
)

type ArchivistCollector struct {
	inserted   *prometheus.CounterVec
	removed    *prometheus.CounterVec
	parentMiss *prometheus.CounterVec
}

var _ module.ArchivistMetrics = (*ArchivistCollector)(nil)

func NewArchivistCollector(registerer prometheus.Registerer) *ArchivistCollector {
	factory := promauto.With(registerer)

	return &ArchivistCollector{
		inserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "payloads_inserted_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemArchivist,
			Help:      "the number of payloads stored by archivists",
		}, []string{LabelArchivist}),
		removed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "payloads_removed_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemArchivist,
			Help:      "the number of payloads deleted from archivists",
		}, []string{LabelArchivist}),
		parentMiss: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "parent_read_misses_total",
			Namespace: namespaceWitnessnet,
			Subsystem: subsystemArchivist,
			Help:      "the number of payloads no parent archivist could supply",
		}, []string{LabelArchivist}),
	}
}

func (ac *ArchivistCollector) PayloadsInserted(archivist string, count int) {
	ac.inserted.With(prometheus.Labels{LabelArchivist: archivist}).Add(float64(count))
}

func (ac *ArchivistCollector) PayloadsRemoved(archivist string, count int) {
	ac.removed.With(prometheus.Labels{LabelArchivist: archivist}).Add(float64(count))
}

func (ac *ArchivistCollector) ParentReadMiss(archivist string) {
	ac.parentMiss.With(prometheus.Labels{LabelArchivist: archivist}).Inc()
}
