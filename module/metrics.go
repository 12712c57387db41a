package module

import (
	"time"
)

// QueryMetrics records the queries dispatched by modules.
type QueryMetrics interface {
	// QueryReceived counts a query that reached the dispatcher.
	QueryReceived(module string, schema string)

	// QueryHandled records how long a query took to answer.
	QueryHandled(module string, schema string, duration time.Duration)

	// QueryFailed counts a query answered with an inline module error.
	QueryFailed(module string, schema string)

	// QueryRejected counts a query refused before dispatch.
	QueryRejected(module string, reason string)
}

// ArchivistMetrics records the activity of archivists.
type ArchivistMetrics interface {
	PayloadsInserted(archivist string, count int)
	PayloadsRemoved(archivist string, count int)
	ParentReadMiss(archivist string)
}

// ResolverMetrics records resolves across resolver slots.
type ResolverMetrics interface {
	ResolveDuration(direction string, duration time.Duration)
	ResolveFailure(direction string)
}
