package runner

// State is a step of the run lifecycle
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateStarting
	StateRunning
	StateCleaning
	StateSignalHandling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCleaning:
		return "cleaning"
	case StateSignalHandling:
		return "signal_handling"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
