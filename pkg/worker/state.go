package worker

import "fmt"

// State represents the execution state of a unit of work.
type State int32

const (
	// Submitted indicates the unit is queued and waiting for a worker.
	Submitted State = iota
	// Running indicates the unit is being executed by a worker.
	Running
	// Committed indicates the transaction of the unit has committed.
	Committed
	// Failed indicates the unit returned an error, panicked or could not commit.
	Failed
)

func (s State) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Running:
		return "running"
	case Committed:
		return "committed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal returns true for states that never change again.
func (s State) Terminal() bool {
	return s == Committed || s == Failed
}
