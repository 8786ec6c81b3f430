package lifecycle

import "sync"

// Status represents the lifecycle state of the managed server process.
type Status string

// Server session states.
const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusStarted  Status = "started"
	StatusFailed   Status = "failed"
)

// allowedTransitions defines valid state transitions for the session.
// Failed is terminal only until the next start request, which re-enters
// starting; an explicit stop on a failed session resets it to stopped.
var allowedTransitions = map[Status]map[Status]struct{}{
	StatusStopped: {
		StatusStopped:  {},
		StatusStarting: {},
	},
	StatusStarting: {
		StatusStarting: {},
		StatusStarted:  {},
		StatusStopped:  {},
		StatusFailed:   {},
	},
	StatusStarted: {
		StatusStarted: {},
		StatusStopped: {},
		StatusFailed:  {},
	},
	StatusFailed: {
		StatusFailed:   {},
		StatusStarting: {},
		StatusStopped:  {},
	},
}

// IsValidTransition reports whether moving from one status to another is allowed.
func IsValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

func (s Status) String() string {
	return string(s)
}

// IsLive reports whether the status implies an owned server process.
func (s Status) IsLive() bool {
	return s == StatusStarting || s == StatusStarted
}

type stateMachine struct {
	mu      sync.RWMutex
	current Status
}

func newStateMachine(initial Status) *stateMachine {
	return &stateMachine{current: initial}
}

// Transition attempts to move the machine to the requested status, enforcing allowed transitions.
func (m *stateMachine) Transition(next Status) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == next {
		return true
	}

	if allowed, ok := allowedTransitions[m.current]; ok {
		if _, ok := allowed[next]; ok {
			m.current = next
			return true
		}
	}

	return false
}

// Current returns the currently tracked status.
func (m *stateMachine) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *stateMachine) Set(next Status) {
	m.mu.Lock()
	m.current = next
	m.mu.Unlock()
}
