package player

import (
	"log"
	"sync"
)

// State is the playback state visible to the UI and the scheduler.
type State int32

const (
	StateStopped State = iota
	StateLoading
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	}
	return "unknown"
}

// legal reports whether a transition between two states is allowed.
// Loading is reachable from anywhere (play intent or underrun), Stopped is
// reachable from anywhere (stop or session failure), Playing only follows
// Loading once the preroll elapses.
func legal(from, to State) bool {
	if from == to {
		return true
	}
	switch to {
	case StateLoading, StateStopped:
		return true
	case StatePlaying:
		return from == StateLoading
	case StatePaused:
		return from == StatePlaying || from == StateLoading
	}
	return false
}

// Machine is the authoritative playback state holder. All transitions go
// through Transition so observers see a single consistent sequence.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []func(State)
}

func NewMachine() *Machine {
	return &Machine{state: StateStopped}
}

// State returns the current playback state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers an observer invoked after every state change.
func (m *Machine) Subscribe(fn func(State)) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Transition moves the machine to a new state if the transition is legal.
// Returns false (and changes nothing) otherwise. A same-state transition is
// a no-op that returns true without notifying observers.
func (m *Machine) Transition(to State) bool {
	m.mu.Lock()
	from := m.state
	if from == to {
		m.mu.Unlock()
		return true
	}
	if !legal(from, to) {
		m.mu.Unlock()
		log.Printf("Playback: rejected transition %s -> %s", from, to)
		return false
	}
	m.state = to
	observers := make([]func(State), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	log.Printf("Playback: %s -> %s", from, to)
	for _, fn := range observers {
		fn(to)
	}
	return true
}
