package linkage

import (
	"fmt"
	"sync"
)

// State is a phase of a clean pass.
type State string

const (
	StateIdle        State = "IDLE"
	StateBlocking    State = "BLOCKING"
	StateClustering  State = "CLUSTERING"
	StateLinking     State = "LINKING"
	StatePropagating State = "PROPAGATING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// BLOCKING is re-entered once per state in the blocked path, and CLUSTERING and
// LINKING alternate once per cluster.
var transitions = map[State][]State{
	StateIdle:        {StateBlocking, StateClustering},
	StateBlocking:    {StateBlocking, StateClustering, StatePropagating},
	StateClustering:  {StateLinking, StateBlocking, StatePropagating},
	StateLinking:     {StateClustering, StateBlocking, StatePropagating},
	StatePropagating: {StateDone},
}

// machine tracks the state of one pass. FAILED is reachable from any
// non-terminal state; DONE and FAILED are terminal.
type machine struct {
	mu    sync.Mutex
	state State
}

func newMachine() *machine {
	return &machine{state: StateIdle}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) to(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == next && (next == StateClustering || next == StateLinking) {
		return nil
	}
	if m.state == StateDone || m.state == StateFailed {
		return fmt.Errorf("pass already finished in %s", m.state)
	}
	if next == StateFailed {
		m.state = next
		return nil
	}
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid pass transition %s -> %s", m.state, next)
}
