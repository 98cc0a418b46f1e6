// Package audio provides the PCM codec utilities shared by the capture
// and playback paths.
//
// The wire format on both directions is little-endian signed 16-bit PCM,
// base64-encoded inside JSON transport messages. In-process, samples are
// float32 in [-1, 1].
package audio

import (
	"encoding/base64"
	"math"
	"time"

	"github.com/calmihq/calmi/pkg/core"
)

// Config describes a fixed PCM stream shape.
type Config struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// BytesPerSecond returns the raw byte rate of the stream.
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Channels * c.BitsPerSample / 8
}

// BytesForDuration returns how many bytes cover d of audio.
func (c Config) BytesForDuration(d time.Duration) int {
	return int(int64(c.BytesPerSecond()) * int64(d) / int64(time.Second))
}

// Duration returns how long nbytes of audio lasts.
func (c Config) Duration(nbytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(int64(nbytes) * int64(time.Second) / int64(bps))
}

// DecodeBase64 decodes a standard-encoding base64 payload.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, core.NewDecodeError("malformed base64 audio payload", err)
	}
	return b, nil
}

// EncodeBase64 encodes bytes with standard encoding, no line wrapping.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// BytesToSamples interprets b as little-endian 16-bit PCM, de-interleaves
// by channel and normalizes each sample to [-1, 1] by dividing by 32768.
// A trailing partial frame (len(b) not a multiple of channels*2) is
// dropped, not an error.
func BytesToSamples(b []byte, channels int) [][]float32 {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := channels * 2
	frames := len(b) / frameBytes

	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			s := int16(b[off]) | int16(b[off+1])<<8
			out[ch][i] = float32(s) / 32768.0
		}
	}
	return out
}

// MonoSamples is BytesToSamples for the common single-channel case.
func MonoSamples(b []byte) []float32 {
	return BytesToSamples(b, 1)[0]
}

// SamplesToPCM16 converts float samples to little-endian 16-bit PCM.
// Samples are clamped to [-1, 1] before scaling so out-of-range input
// cannot wrap around the int16 range.
func SamplesToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		v := int(math.Round(float64(f) * 32768.0))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		s := int16(v)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// RMS computes the root-mean-square energy of float samples.
// Returns a value between 0.0 and 1.0.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, f := range samples {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
