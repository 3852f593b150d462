package spider

import "sync"

// RunState is the authoritative state of a crawl run.
type RunState int

const (
	// StateRunning means workers are dequeuing and fetching.
	StateRunning RunState = iota
	// StatePaused means workers are suspended until resume or cancel.
	StatePaused
	// StateCancelled is terminal: the run was stopped by a cancel signal.
	StateCancelled
	// StateCompleted is terminal: the frontier drained with no task in flight.
	StateCompleted
)

func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == StateCancelled || s == StateCompleted
}

// control is the run's state machine behind a single lock, so observers
// never see torn combinations of independent flags. Allowed transitions:
// Running<->Paused, Running|Paused->Cancelled, Running->Completed.
type control struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state RunState
}

func newControl() *control {
	c := &control{state: StateRunning}
	c.cond = sync.NewCond(&c.mu)

	return c
}

func (c *control) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Pause suspends a running crawl. It reports whether the transition applied.
func (c *control) Pause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return false
	}

	c.state = StatePaused
	c.cond.Broadcast()

	return true
}

// Resume continues a paused crawl.
func (c *control) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return false
	}

	c.state = StateRunning
	c.cond.Broadcast()

	return true
}

// Cancel stops the crawl from Running or Paused. Terminal.
func (c *control) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return false
	}

	c.state = StateCancelled
	c.cond.Broadcast()

	return true
}

// Complete marks a drained run finished. Only a running crawl can drain.
func (c *control) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return false
	}

	c.state = StateCompleted
	c.cond.Broadcast()

	return true
}

// AwaitResume blocks while the run is paused and returns the state that
// ended the wait.
func (c *control) AwaitResume() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.state == StatePaused {
		c.cond.Wait()
	}

	return c.state
}
