package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/audio"
)

type sessionFixture struct {
	sess      *Session
	connector *fakeConnector
	opener    *fakeOpener
	transport *fakeTransport
	source    *fakeSource
	sink      *fakeSink
	rec       *eventRecorder
}

func newFixture() *sessionFixture {
	f := &sessionFixture{
		transport: newFakeTransport(),
		source:    newFakeSource(),
		sink:      &fakeSink{},
	}
	f.connector = &fakeConnector{transport: f.transport}
	f.opener = &fakeOpener{source: f.source}
	f.sess = NewSession(DefaultConfig(), f.connector, f.opener, f.sink, nil)
	f.rec = recordEvents(f.sess)
	return f
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func recordEvents(s *Session) *eventRecorder {
	r := &eventRecorder{}
	go func() {
		for ev := range s.Events() {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
		}
	}()
	return r
}

func (r *eventRecorder) has(pred func(Event) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if pred(ev) {
			return true
		}
	}
	return false
}

func (r *eventRecorder) errorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if e, ok := ev.(ErrorEvent); ok {
			return e.UserMessage
		}
	}
	return ""
}

func audioB64For(d time.Duration) string {
	return audio.EncodeBase64(pcmFor(d))
}

func TestSessionLifecycle(t *testing.T) {
	f := newFixture()

	if got := f.sess.State(); got != StateIdle {
		t.Fatalf("initial state = %v, want idle", got)
	}
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := f.sess.State(); got != StateActive {
		t.Fatalf("state after Start = %v, want active", got)
	}

	// Microphone frames flow to the transport once active.
	f.source.push([]float32{0.1, 0.2})
	if !waitFor(time.Second, func() bool {
		f.transport.mu.Lock()
		defer f.transport.mu.Unlock()
		return len(f.transport.sent) == 1
	}) {
		t.Fatal("capture frame never reached transport")
	}

	if err := f.sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := f.sess.State(); got != StateClosed {
		t.Fatalf("state after Stop = %v, want closed", got)
	}
	if !f.transport.isClosed() {
		t.Fatal("transport not closed")
	}
	if !f.source.isClosed() {
		t.Fatal("capture device not released")
	}
	if !waitFor(time.Second, func() bool {
		return f.rec.has(func(ev Event) bool { _, ok := ev.(ClosedEvent); return ok })
	}) {
		t.Fatal("no closed event")
	}
}

func TestStartWhileActiveIsNoOp(t *testing.T) {
	f := newFixture()

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := f.connector.callCount(); got != 1 {
		t.Fatalf("connector dialed %d times, want 1", got)
	}
	f.sess.Stop()
}

func TestStartWhileConnectingIsNoOp(t *testing.T) {
	f := newFixture()
	hold := make(chan struct{})
	f.connector.hold = hold

	go f.sess.Start(context.Background())
	if !waitFor(time.Second, func() bool { return f.sess.State() == StateConnecting }) {
		t.Fatal("never reached connecting")
	}

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start while connecting: %v", err)
	}
	close(hold)

	if !waitFor(time.Second, func() bool { return f.sess.State() == StateActive }) {
		t.Fatal("never reached active")
	}
	if got := f.connector.callCount(); got != 1 {
		t.Fatalf("connector dialed %d times, want 1", got)
	}
	f.sess.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	f := newFixture()

	// Stop on an idle session is a no-op and leaves state alone.
	if err := f.sess.Stop(); err != nil {
		t.Fatalf("Stop before Start: %v", err)
	}
	if got := f.sess.State(); got != StateIdle {
		t.Fatalf("state after idle Stop = %v, want idle", got)
	}

	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := f.sess.Stop(); err != nil {
		t.Fatalf("repeated Stop: %v", err)
	}
	if got := f.sess.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}

	dials := f.connector.callCount()
	if err := f.sess.Start(context.Background()); err == nil {
		t.Fatal("Start after Stop succeeded; sessions must not restart")
	}
	if got := f.connector.callCount(); got != dials {
		t.Fatalf("connector dialed again after close")
	}
}

func TestStopDuringConnectWins(t *testing.T) {
	f := newFixture()
	hold := make(chan struct{})
	f.connector.hold = hold

	startDone := make(chan error, 1)
	go func() { startDone <- f.sess.Start(context.Background()) }()
	if !waitFor(time.Second, func() bool { return f.sess.State() == StateConnecting }) {
		t.Fatal("never reached connecting")
	}

	if err := f.sess.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := f.sess.State(); got != StateClosed {
		t.Fatalf("state right after Stop = %v, want closed", got)
	}

	close(hold)
	if err := <-startDone; err != nil {
		t.Fatalf("Start after losing race: %v", err)
	}
	if got := f.sess.State(); got != StateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
	if !waitFor(time.Second, func() bool {
		return f.transport.isClosed() && f.source.isClosed()
	}) {
		t.Fatal("late-connected transport or device not released")
	}
}

func TestPermissionDeniedSurfaced(t *testing.T) {
	f := newFixture()
	f.opener.err = core.NewPermissionDeniedError("microphone grant refused", nil)

	err := f.sess.Start(context.Background())
	if err == nil {
		t.Fatal("Start succeeded without a device")
	}
	if !core.IsPermissionDenied(err) {
		t.Fatalf("error type = %v, want permission denied", core.TypeOf(err))
	}
	if got := f.sess.State(); got != StateError {
		t.Fatalf("state = %v, want error", got)
	}
	if !waitFor(time.Second, func() bool { return f.rec.errorMessage() == MsgPermissionDenied }) {
		t.Fatalf("user message = %q, want %q", f.rec.errorMessage(), MsgPermissionDenied)
	}
}

func TestConnectFailureGenericMessage(t *testing.T) {
	f := newFixture()
	f.connector.err = errors.New("dial tcp: refused")

	if err := f.sess.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded without a transport")
	}
	if got := f.sess.State(); got != StateError {
		t.Fatalf("state = %v, want error", got)
	}
	if !f.source.isClosed() {
		t.Fatal("device not released after connect failure")
	}
	if !waitFor(time.Second, func() bool { return f.rec.errorMessage() == MsgStartFailed }) {
		t.Fatalf("user message = %q, want %q", f.rec.errorMessage(), MsgStartFailed)
	}
}

func TestInboundTranscript(t *testing.T) {
	f := newFixture()
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.sess.Stop()

	f.transport.msgs <- ServerMessage{TranscriptDelta: "It sounds like"}
	f.transport.msgs <- ServerMessage{TranscriptDelta: "today was heavy."}

	if !waitFor(time.Second, func() bool {
		return strings.Contains(f.sess.Transcript(), "today was heavy.")
	}) {
		t.Fatalf("transcript = %q", f.sess.Transcript())
	}
	if !strings.Contains(f.sess.Transcript(), "It sounds like today was heavy.") {
		t.Fatalf("fragments not joined: %q", f.sess.Transcript())
	}
}

func TestMalformedAudioIsolated(t *testing.T) {
	f := newFixture()
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.sess.Stop()

	f.transport.msgs <- ServerMessage{AudioB64: []string{"!!not base64!!", audioB64For(10 * time.Millisecond)}}

	if !waitFor(time.Second, func() bool { return f.sink.playedCount() == 1 }) {
		t.Fatal("valid frame after a bad one never played")
	}
	if got := f.sess.State(); got != StateActive {
		t.Fatalf("state = %v, want active; bad frame must not end session", got)
	}
}

func TestBargeInDiscardsPendingAudio(t *testing.T) {
	f := newFixture()
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.sess.Stop()

	// A long buffer is scheduled, then the server reports barge-in.
	f.transport.msgs <- ServerMessage{AudioB64: []string{audioB64For(500 * time.Millisecond)}}
	if !waitFor(time.Second, func() bool { return f.sess.sched.Speaking() }) {
		t.Fatal("buffer never scheduled")
	}

	f.transport.msgs <- ServerMessage{Interrupted: true}

	if !waitFor(time.Second, func() bool { return f.sink.stopCount() > 0 }) {
		t.Fatal("sink never stopped on barge-in")
	}
	if !waitFor(time.Second, func() bool { return !f.sess.sched.Speaking() }) {
		t.Fatal("queued audio survived barge-in")
	}
	if got := f.sess.sched.NextStart(); got != 0 {
		t.Fatalf("timeline cursor = %v after barge-in, want 0", got)
	}
	if !waitFor(time.Second, func() bool {
		return f.rec.has(func(ev Event) bool { _, ok := ev.(InterruptedEvent); return ok })
	}) {
		t.Fatal("no interrupted event")
	}
	if got := f.sess.State(); got != StateActive {
		t.Fatalf("state = %v, want active after barge-in", got)
	}
}

func TestServerCloseEndsSession(t *testing.T) {
	t.Run("clean", func(t *testing.T) {
		f := newFixture()
		if err := f.sess.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.transport.endFromServer(nil)
		if !waitFor(time.Second, func() bool { return f.sess.State() == StateClosed }) {
			t.Fatalf("state = %v, want closed", f.sess.State())
		}
		if !f.source.isClosed() {
			t.Fatal("device not released")
		}
	})

	t.Run("with error", func(t *testing.T) {
		f := newFixture()
		if err := f.sess.Start(context.Background()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.transport.endFromServer(core.NewConnectionError("read", errors.New("reset by peer")))
		if !waitFor(time.Second, func() bool { return f.sess.State() == StateError }) {
			t.Fatalf("state = %v, want error", f.sess.State())
		}
		if !waitFor(time.Second, func() bool { return f.rec.errorMessage() == MsgConnectionIssue }) {
			t.Fatalf("user message = %q, want %q", f.rec.errorMessage(), MsgConnectionIssue)
		}
	})
}

func TestTransportDoneWithoutStreamClose(t *testing.T) {
	// Some failures only signal Done; the session must still settle and
	// hand over any messages delivered before the drop.
	f := newFixture()
	if err := f.sess.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.transport.msgs <- ServerMessage{TranscriptDelta: "last words"}
	f.transport.dropConnection(core.NewConnectionError("write", errors.New("broken pipe")))

	if !waitFor(time.Second, func() bool { return f.sess.State() == StateError }) {
		t.Fatalf("state = %v, want error", f.sess.State())
	}
	if !strings.Contains(f.sess.Transcript(), "last words") {
		t.Fatalf("pre-drop message lost, transcript = %q", f.sess.Transcript())
	}
	if !f.source.isClosed() {
		t.Fatal("device not released after connection drop")
	}
}
