package agent

// RunState is the lifecycle position of one executor run. Every run starts
// Running and ends in exactly one of the other states.
type RunState int

const (
	StateRunning RunState = iota
	StateSucceeded
	StateFailed
	StateBudgetExhausted
	StateErrored
)

func (s RunState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateBudgetExhausted:
		return "budget_exhausted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// exitReason is the human phrasing of a terminal state used in reports.
func (s RunState) exitReason() string {
	switch s {
	case StateSucceeded:
		return "model reported success"
	case StateFailed:
		return "model reported failure"
	case StateBudgetExhausted:
		return "step limit reached"
	case StateErrored:
		return "run aborted by an error"
	default:
		return "still running"
	}
}
