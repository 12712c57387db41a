package module

import (
	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/boundwitness"
	"github.com/witnessnet/witnessnet/model/payload"
)

// EventKind names a module event.
type EventKind string

const (
	ModuleAttached     EventKind = "moduleAttached"
	ModuleDetached     EventKind = "moduleDetached"
	ModuleRegistered   EventKind = "moduleRegistered"
	ModuleUnregistered EventKind = "moduleUnregistered"
	ModuleQueried      EventKind = "moduleQueried"
	ReportStart        EventKind = "reportStart"
	ReportEnd          EventKind = "reportEnd"
)

// Event announces a change that already happened.
type Event struct {
	Kind EventKind

	// Source is the address of the emitting module.
	Source crypto.Address

	// Module is the subject of attach, detach, register and unregister events.
	Module Module

	// Query and Result are set on ModuleQueried events.
	Query  *boundwitness.BoundWitness
	Result *boundwitness.BoundWitness

	// Payloads carries the input of ReportStart and the output of ReportEnd events.
	Payloads []payload.Payload

	Err error
}

// Subscription delivers events on a channel until closed.
type Subscription interface {
	Events() <-chan Event

	// Close stops delivery and closes the events channel. It is safe to call more than once.
	Close()
}

// EventSource is implemented by modules emitting events.
type EventSource interface {
	// Subscribe returns a subscription to the given kinds, or to every kind if none is given.
	Subscribe(kinds ...EventKind) Subscription
}
