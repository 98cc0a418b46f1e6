package audio

import (
	"math"
	"testing"
	"time"

	"github.com/calmihq/calmi/pkg/core"
)

func TestConfigDurations(t *testing.T) {
	cfg := Config{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

	if got := cfg.BytesPerSecond(); got != 48000 {
		t.Fatalf("BytesPerSecond = %d, want 48000", got)
	}
	if got := cfg.BytesForDuration(500 * time.Millisecond); got != 24000 {
		t.Fatalf("BytesForDuration(500ms) = %d, want 24000", got)
	}
	if got := cfg.Duration(48000); got != time.Second {
		t.Fatalf("Duration(48000) = %v, want 1s", got)
	}
	if got := (Config{}).Duration(100); got != 0 {
		t.Fatalf("zero config Duration = %v, want 0", got)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 0.25, -0.25, 1.0, -1.0, 0.9999, -0.9999}

	out := MonoSamples(SamplesToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("round trip length = %d, want %d", len(out), len(in))
	}

	const tol = 1.0/32768.0 + 1e-9
	for i := range in {
		if diff := math.Abs(float64(in[i]) - float64(out[i])); diff > tol {
			t.Errorf("sample %d: %v -> %v, diff %v exceeds 1/32768", i, in[i], out[i], diff)
		}
	}
}

func TestSamplesToPCM16Clamps(t *testing.T) {
	out := SamplesToPCM16([]float32{2.0, -2.0})

	hi := int16(out[0]) | int16(out[1])<<8
	lo := int16(out[2]) | int16(out[3])<<8
	if hi != math.MaxInt16 {
		t.Fatalf("over-range sample = %d, want %d", hi, math.MaxInt16)
	}
	if lo != math.MinInt16 {
		t.Fatalf("under-range sample = %d, want %d", lo, math.MinInt16)
	}
}

func TestBytesToSamplesDropsPartialFrame(t *testing.T) {
	// 2 channels * 2 bytes = 4 bytes per frame; 7 bytes = 1 frame + partial.
	b := []byte{0x00, 0x40, 0x00, 0xc0, 0x01, 0x02, 0x03}

	chans := BytesToSamples(b, 2)
	if len(chans) != 2 {
		t.Fatalf("channels = %d, want 2", len(chans))
	}
	if len(chans[0]) != 1 || len(chans[1]) != 1 {
		t.Fatalf("frames = %d/%d, want 1/1", len(chans[0]), len(chans[1]))
	}
	if chans[0][0] != 0.5 {
		t.Errorf("ch0[0] = %v, want 0.5", chans[0][0])
	}
	if chans[1][0] != -0.5 {
		t.Errorf("ch1[0] = %v, want -0.5", chans[1][0])
	}
}

func TestDecodeBase64Malformed(t *testing.T) {
	if _, err := DecodeBase64("AAAA"); err != nil {
		t.Fatalf("valid base64 rejected: %v", err)
	}

	_, err := DecodeBase64("not base64!!!")
	if err == nil {
		t.Fatal("malformed base64 accepted")
	}
	if !core.IsDecode(err) {
		t.Fatalf("error type = %v, want decode error", core.TypeOf(err))
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
	if got := RMS([]float32{0.5, -0.5, 0.5, -0.5}); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("RMS = %v, want 0.5", got)
	}
}
