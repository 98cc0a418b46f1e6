package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/calmihq/calmi/pkg/core"
	"github.com/calmihq/calmi/pkg/core/voice"
)

// micOpener acquires the default capture device through miniaudio.
type micOpener struct{}

func (micOpener) Open(_ context.Context, cfg voice.Config) (voice.Source, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, core.NewConnectionError("init audio backend", err)
	}

	src := &micSource{
		mctx:   mctx,
		frames: make(chan []float32, 8),
		size:   cfg.FrameSize,
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(cfg.Input.Channels)
	devCfg.SampleRate = uint32(cfg.Input.SampleRate)

	dev, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: src.onFrames,
	})
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return nil, core.NewPermissionDeniedError("open capture device", err)
	}
	src.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return nil, core.NewPermissionDeniedError("start capture device", err)
	}
	return src, nil
}

type micSource struct {
	mctx   *malgo.AllocatedContext
	dev    *malgo.Device
	frames chan []float32
	size   int
	buf    []float32
	once   sync.Once
}

func (m *micSource) Frames() <-chan []float32 { return m.frames }

// onFrames runs on the audio thread. It slices the raw f32 stream into
// fixed frames and never blocks; a full channel drops the frame.
func (m *micSource) onFrames(_, input []byte, frameCount uint32) {
	for i := 0; i < int(frameCount); i++ {
		bits := binary.LittleEndian.Uint32(input[i*4:])
		m.buf = append(m.buf, math.Float32frombits(bits))
		if len(m.buf) == m.size {
			frame := make([]float32, m.size)
			copy(frame, m.buf)
			m.buf = m.buf[:0]
			select {
			case m.frames <- frame:
			default:
			}
		}
	}
}

func (m *micSource) Close() error {
	m.once.Do(func() {
		m.dev.Uninit()
		m.mctx.Uninit()
		m.mctx.Free()
		close(m.frames)
	})
	return nil
}

// speaker plays model audio through the default output device.
type speaker struct {
	ctx *oto.Context

	mu      sync.Mutex
	players []*oto.Player
}

func newSpeaker(cfg voice.Config) (*speaker, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.Output.SampleRate,
		ChannelCount: cfg.Output.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, core.NewConnectionError("init playback backend", err)
	}
	<-ready
	return &speaker{ctx: ctx}, nil
}

func (s *speaker) Play(pcm []byte) error {
	p := s.ctx.NewPlayer(bytes.NewReader(pcm))
	p.Play()

	s.mu.Lock()
	defer s.mu.Unlock()
	live := s.players[:0]
	for _, old := range s.players {
		if old.IsPlaying() {
			live = append(live, old)
		} else {
			old.Close()
		}
	}
	s.players = append(live, p)
	return nil
}

func (s *speaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Pause()
		p.Close()
	}
	s.players = nil
	return nil
}
