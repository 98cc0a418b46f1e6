package voice

import (
	"sync"
	"time"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/audio"
)

// Scheduler queues model audio gaplessly on a single output timeline.
//
// The timeline is a monotonic offset from the scheduler's epoch. Each
// buffer starts at max(nextStart, now) and advances nextStart by its own
// duration, so consecutive chunks play back to back even when they
// arrive in a burst. An interrupt discards every scheduled buffer and
// resets nextStart to zero, which makes the next chunk start immediately.
//
// All sink calls happen under the scheduler's lock, so a buffer can
// never reach the sink after Interrupt has stopped it.
type Scheduler struct {
	mu         sync.Mutex
	out        audio.Config
	sink       Sink
	now        func() time.Time
	epoch      time.Time
	nextStart  time.Duration
	live       map[int]*scheduled
	nextID     int
	onSpeaking func(bool)
	closed     bool
}

type scheduled struct {
	play *time.Timer
	end  *time.Timer
}

// NewScheduler creates a scheduler that plays through sink with the
// given output shape. onSpeaking, when non-nil, is invoked with true
// when the live buffer set becomes non-empty and false when it drains.
func NewScheduler(out audio.Config, sink Sink, onSpeaking func(bool)) *Scheduler {
	return newScheduler(out, sink, onSpeaking, time.Now)
}

func newScheduler(out audio.Config, sink Sink, onSpeaking func(bool), now func() time.Time) *Scheduler {
	return &Scheduler{
		out:        out,
		sink:       sink,
		now:        now,
		epoch:      now(),
		live:       make(map[int]*scheduled),
		onSpeaking: onSpeaking,
	}
}

// Schedule queues pcm on the output timeline and returns its start
// offset from the epoch.
func (s *Scheduler) Schedule(pcm []byte) (time.Duration, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, core.NewInvalidRequestError("scheduler is closed")
	}

	elapsed := s.now().Sub(s.epoch)
	start := s.nextStart
	if elapsed > start {
		start = elapsed
	}
	dur := s.out.Duration(len(pcm))
	s.nextStart = start + dur

	id := s.nextID
	s.nextID++
	wasEmpty := len(s.live) == 0

	buf := &scheduled{}
	buf.play = time.AfterFunc(start-elapsed, func() {
		// Interrupt may have fired between the timer expiring and this
		// callback running; a buffer no longer in the live set stays
		// silent. Playing under the lock keeps sink calls ordered with
		// respect to Interrupt's Stop.
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.live[id]; !ok {
			return
		}
		s.sink.Play(pcm)
	})
	buf.end = time.AfterFunc(start+dur-elapsed, func() {
		s.finish(id)
	})
	s.live[id] = buf
	s.mu.Unlock()

	if wasEmpty && s.onSpeaking != nil {
		s.onSpeaking(true)
	}
	return start, nil
}

func (s *Scheduler) finish(id int) {
	s.mu.Lock()
	if _, ok := s.live[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.live, id)
	drained := len(s.live) == 0
	s.mu.Unlock()

	if drained && s.onSpeaking != nil {
		s.onSpeaking(false)
	}
}

// Interrupt discards every scheduled buffer, halts the sink and resets
// the timeline so the next chunk plays immediately.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	hadLive := len(s.live) > 0
	for id, buf := range s.live {
		buf.play.Stop()
		buf.end.Stop()
		delete(s.live, id)
	}
	s.nextStart = 0
	s.sink.Stop()
	s.mu.Unlock()

	if hadLive && s.onSpeaking != nil {
		s.onSpeaking(false)
	}
}

// Close interrupts and permanently rejects further scheduling.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Interrupt()
}

// NextStart returns the timeline offset the next buffer would start at,
// assuming it is scheduled before the queue drains.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Speaking reports whether any buffer is scheduled or playing.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live) > 0
}
