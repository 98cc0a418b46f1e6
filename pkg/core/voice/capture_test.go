package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calmihq/calmi/pkg/core/audio"
)

func TestCaptureDropsWhileUnbound(t *testing.T) {
	p := NewCapturePipeline()

	if err := p.HandleFrame([]float32{0.1, -0.1}); err != nil {
		t.Fatalf("unbound HandleFrame: %v", err)
	}
	if p.Bound() {
		t.Fatal("pipeline reports bound before Bind")
	}
	if p.Level() == 0 {
		t.Fatal("level not tracked while unbound")
	}
}

func TestCaptureForwardsWhenBound(t *testing.T) {
	p := NewCapturePipeline()

	var got []MediaFrame
	p.Bind(func(f MediaFrame) error {
		got = append(got, f)
		return nil
	})

	samples := []float32{0.5, -0.5, 0.25}
	if err := p.HandleFrame(samples); err != nil {
		t.Fatalf("HandleFrame: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(got))
	}
	if got[0].MIMEType != InputMIMEType {
		t.Fatalf("mime type = %q, want %q", got[0].MIMEType, InputMIMEType)
	}

	pcm, err := audio.DecodeBase64(got[0].Data)
	if err != nil {
		t.Fatalf("frame payload not base64: %v", err)
	}
	if len(pcm) != len(samples)*2 {
		t.Fatalf("payload = %d bytes, want %d", len(pcm), len(samples)*2)
	}

	p.Unbind()
	if err := p.HandleFrame(samples); err != nil {
		t.Fatalf("post-unbind HandleFrame: %v", err)
	}
	if len(got) != 1 {
		t.Fatal("frame forwarded after Unbind")
	}
}

func TestCaptureRun(t *testing.T) {
	src := newFakeSource()
	p := NewCapturePipeline()

	var sent int
	p.Bind(func(MediaFrame) error {
		sent++
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), src) }()

	src.push([]float32{0.1})
	src.push([]float32{0.2})
	src.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after source close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after source closed")
	}
	if sent != 2 {
		t.Fatalf("frames sent = %d, want 2", sent)
	}
}

func TestCaptureRunSendError(t *testing.T) {
	src := newFakeSource()
	p := NewCapturePipeline()

	sendErr := errors.New("socket gone")
	p.Bind(func(MediaFrame) error { return sendErr })

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), src) }()

	src.push([]float32{0.1})

	select {
	case err := <-done:
		if !errors.Is(err, sendErr) {
			t.Fatalf("Run error = %v, want %v", err, sendErr)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not surface send failure")
	}
}
