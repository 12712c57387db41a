package module

import (
	"errors"

	"github.com/witnessnet/witnessnet/module/irrecoverable"
)

// ErrMultipleStartup is returned when a component that supports a single start is started again.
var ErrMultipleStartup = errors.New("component may only be started once")

// Startable is a long running part of a witness node. Cancelling the context given to Start
// shuts it down.
type Startable interface {
	// Start launches the component. Failures it cannot recover from are thrown on ctx.
	Start(ctx irrecoverable.SignalerContext)
}

// ReadyDoneAware exposes the startup and shutdown progress of a component. Both channels are
// stable: every call returns the same channel.
type ReadyDoneAware interface {
	// Ready closes once the component is serving.
	Ready() <-chan struct{}

	// Done closes once the component stopped.
	Done() <-chan struct{}
}
