package voice

import (
	"context"
	"sync"
	"time"
)

// fakeClock is a manually advanced clock for scheduler arithmetic tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeSink struct {
	mu     sync.Mutex
	played [][]byte
	stops  int
}

func (f *fakeSink) Play(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, pcm)
	return nil
}

func (f *fakeSink) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeSink) playedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.played)
}

func (f *fakeSink) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

type fakeSource struct {
	frames    chan []float32
	mu        sync.Mutex
	closed    bool
	closeHook func()
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []float32, 16)}
}

func (f *fakeSource) push(samples []float32) { f.frames <- samples }

func (f *fakeSource) Frames() <-chan []float32 { return f.frames }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.frames)
	if f.closeHook != nil {
		f.closeHook()
	}
	return nil
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeTransport struct {
	mu     sync.Mutex
	sent   []MediaFrame
	msgs   chan ServerMessage
	done   chan struct{}
	err    error
	closed bool
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		msgs: make(chan ServerMessage, 16),
		done: make(chan struct{}),
	}
}

func (f *fakeTransport) SendMedia(frame MediaFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Messages() <-chan ServerMessage { return f.msgs }

func (f *fakeTransport) Done() <-chan struct{} { return f.done }

func (f *fakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// endFromServer simulates the server closing the stream.
func (f *fakeTransport) endFromServer(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.msgs)
	f.once.Do(func() { close(f.done) })
}

// dropConnection simulates a transport that dies without ever closing
// its message channel, only signaling Done.
func (f *fakeTransport) dropConnection(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

type fakeConnector struct {
	mu        sync.Mutex
	transport *fakeTransport
	err       error
	calls     int
	hold      chan struct{} // when non-nil, Connect blocks until closed
}

func (f *fakeConnector) Connect(ctx context.Context, cfg Config) (Transport, error) {
	f.mu.Lock()
	f.calls++
	hold := f.hold
	tr, err := f.transport, f.err
	f.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (f *fakeConnector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeOpener struct {
	mu     sync.Mutex
	source *fakeSource
	err    error
	calls  int
}

func (f *fakeOpener) Open(ctx context.Context, cfg Config) (Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.source, nil
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
