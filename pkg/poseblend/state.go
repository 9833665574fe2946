package poseblend

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionActive is returned by Start while a session is running.
	ErrSessionActive = errors.New("blend session already active")

	// ErrSessionInactive is returned by Update and End without a session.
	ErrSessionInactive = errors.New("no active blend session")
)

// State of a blend session.
type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event drives a state transition.
type Event int

const (
	EventStart Event = iota
	EventUpdate
	EventEnd
	EventAbort
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventUpdate:
		return "update"
	case EventEnd:
		return "end"
	case EventAbort:
		return "abort"
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// transition returns the state after e, or an error when e is not allowed
// in s. Abort is allowed from every state.
func transition(s State, e Event) (State, error) {
	switch e {
	case EventStart:
		if s == Active {
			return s, ErrSessionActive
		}
		return Active, nil
	case EventUpdate:
		if s != Active {
			return s, ErrSessionInactive
		}
		return Active, nil
	case EventEnd:
		if s != Active {
			return s, ErrSessionInactive
		}
		return Inactive, nil
	case EventAbort:
		return Inactive, nil
	}
	return s, fmt.Errorf("unknown blend event %v", e)
}
