package voice

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle means the session has not been started.
	StateIdle State = iota

	// StateConnecting means Start is opening the device and transport.
	StateConnecting

	// StateActive means audio is flowing in both directions.
	StateActive

	// StateClosed means the session was stopped. Terminal.
	StateClosed

	// StateError means the session failed. Terminal.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// terminal reports whether no further transitions are possible.
func (s State) terminal() bool {
	return s == StateClosed || s == StateError
}
