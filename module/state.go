package module

import (
	"fmt"
)

// State is the lifecycle state of a module.
type State int32

const (
	StateCreated State = iota
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// NotStartedAction selects how a query to a module that is not started is reported.
type NotStartedAction string

const (
	NotStartedWarn  NotStartedAction = "warn"
	NotStartedError NotStartedAction = "error"
	NotStartedNone  NotStartedAction = "none"
)
