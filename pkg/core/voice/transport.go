package voice

import "context"

// MediaFrame is one outbound capture chunk: base64 PCM plus its MIME type.
type MediaFrame struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// ServerMessage is one inbound event from the realtime transport, already
// lifted out of the wire envelope. Audio payloads stay base64-encoded;
// the session decodes them so a malformed frame can be isolated without
// touching the transport.
type ServerMessage struct {
	// TranscriptDelta is an incremental caption fragment, possibly empty.
	TranscriptDelta string

	// AudioB64 holds zero or more base64 PCM payloads from the turn.
	AudioB64 []string

	// Interrupted is set when the server detected barge-in and the client
	// must discard queued playback.
	Interrupted bool

	// TurnComplete is set when the model finished its turn.
	TurnComplete bool
}

// Transport is an established realtime connection.
type Transport interface {
	// SendMedia writes one capture frame to the server.
	SendMedia(frame MediaFrame) error

	// Messages delivers inbound server messages until the connection ends.
	Messages() <-chan ServerMessage

	// Done is closed when the connection ends for any reason, after any
	// final messages have been delivered to Messages.
	Done() <-chan struct{}

	// Err returns the terminal error after Done is closed, or nil for a
	// clean shutdown.
	Err() error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Connector dials a realtime transport for a session config.
type Connector interface {
	Connect(ctx context.Context, cfg Config) (Transport, error)
}

// Source is an open capture device producing fixed-size sample frames.
type Source interface {
	// Frames delivers capture frames until the source is closed.
	Frames() <-chan []float32

	// Close releases the device.
	Close() error
}

// DeviceOpener acquires a capture device. A refused grant surfaces as a
// permission denied error.
type DeviceOpener interface {
	Open(ctx context.Context, cfg Config) (Source, error)
}

// Sink plays PCM immediately and can halt everything it was given.
// The playback scheduler serializes all calls, so implementations need
// no locking of their own against it; Play must enqueue and return
// promptly rather than block for the buffer's duration.
type Sink interface {
	// Play starts pcm as soon as possible.
	Play(pcm []byte) error

	// Stop halts and discards all playing and queued audio.
	Stop() error
}
