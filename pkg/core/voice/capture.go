package voice

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/calmihq/calmi/pkg/core/audio"
)

// CapturePipeline turns raw float frames from a capture device into
// outbound media frames. It is bound to a transport send function only
// while the connection is established; frames arriving while unbound are
// dropped rather than queued, since stale audio is worse than a gap.
type CapturePipeline struct {
	send  atomic.Pointer[func(MediaFrame) error]
	level atomic.Uint64 // float64 bits of the last frame's RMS
}

// NewCapturePipeline creates an unbound pipeline.
func NewCapturePipeline() *CapturePipeline {
	return &CapturePipeline{}
}

// Bind routes subsequent frames to send.
func (p *CapturePipeline) Bind(send func(MediaFrame) error) {
	p.send.Store(&send)
}

// Unbind drops subsequent frames.
func (p *CapturePipeline) Unbind() {
	p.send.Store(nil)
}

// Bound reports whether frames are currently being forwarded.
func (p *CapturePipeline) Bound() bool {
	return p.send.Load() != nil
}

// HandleFrame encodes one capture frame and forwards it. Frames arriving
// while unbound are dropped and the drop is not an error.
func (p *CapturePipeline) HandleFrame(samples []float32) error {
	p.level.Store(math.Float64bits(audio.RMS(samples)))

	send := p.send.Load()
	if send == nil {
		return nil
	}
	frame := MediaFrame{
		Data:     audio.EncodeBase64(audio.SamplesToPCM16(samples)),
		MIMEType: InputMIMEType,
	}
	return (*send)(frame)
}

// Level returns the RMS energy of the most recent frame, bound or not.
// Display code uses it for input level meters.
func (p *CapturePipeline) Level() float64 {
	return math.Float64frombits(p.level.Load())
}

// Run consumes src until ctx is canceled or the source closes. Send
// failures end the loop; the caller decides whether that tears the
// session down.
func (p *CapturePipeline) Run(ctx context.Context, src Source) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case samples, ok := <-src.Frames():
			if !ok {
				return nil
			}
			if err := p.HandleFrame(samples); err != nil {
				return err
			}
		}
	}
}
