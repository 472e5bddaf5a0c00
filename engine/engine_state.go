package engine

import "fmt"

// State is the lifecycle state of the engine. States only move forward.
type State int32

const (
	// StateUninitialized is the state of a new engine, before Load.
	StateUninitialized State = iota
	// StateLoaded means the compositor is connected, the overlay is anchored and the frames are on the GPU.
	StateLoaded
	// StateRunning means the tick loop is active.
	StateRunning
	// StateShuttingDown means a quit signal or fatal error stopped the loop and teardown is in progress.
	StateShuttingDown
	// StateTerminated means every resource has been released.
	StateTerminated
)

var stateNames = map[State]string{
	StateUninitialized: "uninitialized",
	StateLoaded:        "loaded",
	StateRunning:       "running",
	StateShuttingDown:  "shutting_down",
	StateTerminated:    "terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// canTransition reports whether from -> to is an edge of the lifecycle.
// Any live state may move to ShuttingDown so teardown can run after a partial Load.
func canTransition(from, to State) bool {
	switch to {
	case StateLoaded:
		return from == StateUninitialized
	case StateRunning:
		return from == StateLoaded
	case StateShuttingDown:
		return from == StateUninitialized || from == StateLoaded || from == StateRunning
	case StateTerminated:
		return from == StateShuttingDown
	}
	return false
}

// Observer receives engine events on the thread that runs the engine. Implementations must not block.
type Observer interface {
	// OnStateChange is called after every lifecycle transition.
	//
	// Parameters:
	//   - from: the previous state
	//   - to: the new state
	OnStateChange(from, to State)

	// OnFrameAdvance is called when the animation clock moved to a new frame.
	//
	// Parameters:
	//   - frame: the new frame index
	OnFrameAdvance(frame uint32)
}
