package voice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/audio"
)

// User-facing failure messages. Permission refusals are distinguished
// because the user can fix them; everything else gets a generic message.
const (
	MsgPermissionDenied = "Microphone access was denied. Please check your device settings and try again."
	MsgStartFailed      = "Could not start voice session. Please try again."
	MsgConnectionIssue  = "The connection encountered an issue."
)

// Session runs one live voice conversation: it opens the capture device,
// dials the realtime transport, streams microphone frames up and
// schedules model audio down, and reports progress through Events.
//
// Lifecycle: idle -> connecting -> active -> closed, with error reachable
// from any non-terminal state. Closed and error are terminal; there is no
// reconnect, callers create a new Session instead.
type Session struct {
	cfg       Config
	connector Connector
	opener    DeviceOpener
	logger    *slog.Logger

	capture *CapturePipeline
	sched   *Scheduler

	mu         sync.Mutex
	state      State
	transport  Transport
	source     Source
	transcript *Transcript
	cancel     context.CancelFunc

	evMu     sync.Mutex
	evClosed bool
	events   chan Event
}

// NewSession wires a session from its collaborators. The sink receives
// model audio; it is driven by the internal playback scheduler.
func NewSession(cfg Config, connector Connector, opener DeviceOpener, sink Sink, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	s := &Session{
		cfg:        cfg,
		connector:  connector,
		opener:     opener,
		logger:     logger,
		capture:    NewCapturePipeline(),
		transcript: NewTranscript(cfg.TranscriptLimit),
		events:     make(chan Event, 100),
	}
	s.sched = NewScheduler(cfg.Output, sink, func(speaking bool) {
		s.emit(SpeakingEvent{Speaking: speaking})
	})
	return s
}

// Events delivers session events. The channel closes after the session
// reaches a terminal state. Slow consumers lose events rather than block
// the audio path.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the current rolling caption window.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Text()
}

// InputLevel returns the RMS energy of the last capture frame.
func (s *Session) InputLevel() float64 { return s.capture.Level() }

// Start opens the capture device and dials the transport. Calling Start
// while the session is connecting or active is a no-op; a session that
// already ended cannot be restarted.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateConnecting, StateActive:
		s.mu.Unlock()
		return nil
	case StateClosed, StateError:
		s.mu.Unlock()
		return core.NewInvalidRequestError("session already ended; create a new one")
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	source, err := s.opener.Open(ctx, s.cfg)
	if err != nil {
		return s.fail(err)
	}

	transport, err := s.connector.Connect(ctx, s.cfg)
	if err != nil {
		source.Close()
		return s.fail(err)
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Stop won the race while we were dialing.
		s.mu.Unlock()
		transport.Close()
		source.Close()
		return nil
	}
	s.transport = transport
	s.source = source
	s.capture.Bind(transport.SendMedia)
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.setStateLocked(StateActive)
	s.mu.Unlock()

	go s.captureLoop(runCtx, source)
	go s.receiveLoop(runCtx, transport)
	return nil
}

// Stop ends the session and releases the device and transport. It is
// idempotent, leaves an idle session untouched, and marks the session
// closed before teardown completes, so a Start racing with Stop cannot
// resurrect the connection.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle || s.state.terminal() {
		s.mu.Unlock()
		return nil
	}
	s.capture.Unbind()
	transport, source, cancel := s.transport, s.source, s.cancel
	s.transport, s.source, s.cancel = nil, nil, nil
	s.setStateLocked(StateClosed)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.sched.Close()
	if transport != nil {
		transport.Close()
	}
	if source != nil {
		source.Close()
	}
	s.finishEvents()
	return nil
}

func (s *Session) captureLoop(ctx context.Context, source Source) {
	if err := s.capture.Run(ctx, source); err != nil && ctx.Err() == nil {
		s.fail(core.NewConnectionError("send capture frame", err))
	}
}

func (s *Session) receiveLoop(ctx context.Context, transport Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-transport.Messages():
			if !ok {
				s.finishTransport(ctx, transport)
				return
			}
			s.handleMessage(msg)
		case <-transport.Done():
			// The connection ended; hand over whatever was already
			// delivered, then settle the session.
			for {
				select {
				case msg, ok := <-transport.Messages():
					if ok {
						s.handleMessage(msg)
						continue
					}
				default:
				}
				s.finishTransport(ctx, transport)
				return
			}
		}
	}
}

func (s *Session) finishTransport(ctx context.Context, transport Transport) {
	if ctx.Err() != nil {
		return
	}
	if err := transport.Err(); err != nil {
		s.fail(err)
	} else {
		s.Stop()
	}
}

func (s *Session) handleMessage(msg ServerMessage) {
	if msg.Interrupted {
		s.sched.Interrupt()
		s.emit(InterruptedEvent{})
	}
	if msg.TranscriptDelta != "" {
		s.mu.Lock()
		text := s.transcript.Append(msg.TranscriptDelta)
		s.mu.Unlock()
		s.emit(TranscriptEvent{Text: text})
	}
	for _, b64 := range msg.AudioB64 {
		pcm, err := audio.DecodeBase64(b64)
		if err != nil {
			// One bad frame never ends the session.
			s.logger.Warn("dropping undecodable audio frame", "error", err)
			continue
		}
		if _, err := s.sched.Schedule(pcm); err != nil {
			return
		}
	}
}

// fail moves the session to the error state, tears everything down and
// emits an ErrorEvent with a displayable message.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.state.terminal() {
		s.mu.Unlock()
		return err
	}
	wasActive := s.state == StateActive
	s.capture.Unbind()
	transport, source, cancel := s.transport, s.source, s.cancel
	s.transport, s.source, s.cancel = nil, nil, nil
	s.setStateLocked(StateError)
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.sched.Close()
	if transport != nil {
		transport.Close()
	}
	if source != nil {
		source.Close()
	}

	userMsg := MsgStartFailed
	switch {
	case core.IsPermissionDenied(err):
		userMsg = MsgPermissionDenied
	case wasActive:
		userMsg = MsgConnectionIssue
	}

	s.logger.Error("voice session failed", "state", "error", "error", err)
	s.emit(ErrorEvent{Err: err, UserMessage: userMsg})
	s.finishEvents()
	return err
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	s.emit(StateChangedEvent{State: st})
}

func (s *Session) emit(ev Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evClosed {
		return
	}
	select {
	case s.events <- ev:
	default:
		// Consumer is behind; dropping beats blocking the audio path.
	}
}

func (s *Session) finishEvents() {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	if s.evClosed {
		return
	}
	select {
	case s.events <- ClosedEvent{}:
	default:
	}
	close(s.events)
	s.evClosed = true
}
