package voice

// Event is something that happened during a session. Consumers receive
// events from Session.Events and switch on the concrete type.
type Event interface {
	EventType() string
}

// StateChangedEvent reports a lifecycle transition.
type StateChangedEvent struct {
	State State
}

func (StateChangedEvent) EventType() string { return "state_changed" }

// TranscriptEvent carries the current rolling transcript window after an
// inbound fragment was appended.
type TranscriptEvent struct {
	Text string
}

func (TranscriptEvent) EventType() string { return "transcript" }

// SpeakingEvent reports whether remote audio is currently scheduled or
// playing.
type SpeakingEvent struct {
	Speaking bool
}

func (SpeakingEvent) EventType() string { return "speaking" }

// InterruptedEvent reports a barge-in: all queued playback was discarded.
type InterruptedEvent struct{}

func (InterruptedEvent) EventType() string { return "interrupted" }

// ErrorEvent reports a session failure. UserMessage is safe to display.
type ErrorEvent struct {
	Err         error
	UserMessage string
}

func (ErrorEvent) EventType() string { return "error" }

// ClosedEvent is the final event emitted before the event channel closes.
type ClosedEvent struct{}

func (ClosedEvent) EventType() string { return "closed" }
