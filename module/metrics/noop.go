package metrics

import (
	"time"

	"github.com/witnessnet/witnessnet/module"
)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

var _ module.QueryMetrics = (*NoopCollector)(nil)
var _ module.ArchivistMetrics = (*NoopCollector)(nil)
var _ module.ResolverMetrics = (*NoopCollector)(nil)

func (nc *NoopCollector) QueryReceived(string, string)               {}
func (nc *NoopCollector) QueryHandled(string, string, time.Duration) {}
func (nc *NoopCollector) QueryFailed(string, string)                 {}
func (nc *NoopCollector) QueryRejected(string, string)               {}
func (nc *NoopCollector) PayloadsInserted(string, int)               {}
func (nc *NoopCollector) PayloadsRemoved(string, int)                {}
func (nc *NoopCollector) ParentReadMiss(string)                      {}
func (nc *NoopCollector) ResolveDuration(string, time.Duration)      {}
func (nc *NoopCollector) ResolveFailure(string)                      {}
