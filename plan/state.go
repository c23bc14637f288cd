// Package plan implements the planner (C7): the five-step decision
// order that turns an operation plus its operands' current layout into
// a Replicate(Virtualize(Symmetrize(LocalKernel))) execution tree, and
// the state machine that sequences Plan → lay out data → execute
// arithmetic → done (§4.7).
package plan

import "github.com/ctfgo/ctf/internal/errs"

// State is one point in a Plan's lifecycle (§4.7, §5).
type State int

const (
	Fresh State = iota
	Planned
	LaidOut
	Executing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case Planned:
		return "Planned"
	case LaidOut:
		return "LaidOut"
	case Executing:
		return "Executing"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// legal enumerates the state machine's allowed transitions: only
// LaidOut → Executing performs arithmetic, only Planned → LaidOut moves
// data, and Failed is reachable from any non-terminal state.
var legal = map[State][]State{
	Fresh:     {Planned, Failed},
	Planned:   {LaidOut, Failed},
	LaidOut:   {Executing, Failed},
	Executing: {Done, Failed},
	Done:      nil,
	Failed:    nil,
}

// Machine sequences a single Plan's state transitions.
type Machine struct {
	state State
}

// NewMachine returns a Machine starting at Fresh.
func NewMachine() *Machine { return &Machine{state: Fresh} }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Transition moves the machine to to, rejecting illegal transitions with
// an InvalidInput-kind error and leaving the state unchanged.
func (m *Machine) Transition(to State) error {
	for _, ok := range legal[m.state] {
		if ok == to {
			m.state = to
			return nil
		}
	}
	return errs.New(errs.InvalidInput, "plan: illegal transition %s -> %s", m.state, to)
}
