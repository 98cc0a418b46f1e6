package voice

import "github.com/calmihq/calmi/pkg/core/audio"

// InputMIMEType is the MIME type attached to every outbound capture frame.
const InputMIMEType = "audio/pcm;rate=16000"

// Defaults for a live voice session.
const (
	DefaultModel     = "gemini-2.5-flash-native-audio-preview-12-2025"
	DefaultVoice     = "Zephyr"
	DefaultFrameSize = 4096

	// DefaultTranscriptLimit bounds the rolling caption window, in runes.
	DefaultTranscriptLimit = 150
)

// Config holds the tunables of a live voice session.
type Config struct {
	// Model is the realtime model identifier.
	Model string

	// Voice is the prebuilt voice name used for synthesis.
	Voice string

	// SystemInstruction is the persona prompt sent at session setup.
	SystemInstruction string

	// Input is the capture stream shape. Fixed at 16 kHz mono 16-bit.
	Input audio.Config

	// Output is the playback stream shape. Fixed at 24 kHz mono 16-bit.
	Output audio.Config

	// FrameSize is the number of samples per capture frame.
	FrameSize int

	// TranscriptLimit bounds the rolling transcript window, in runes.
	TranscriptLimit int
}

// DefaultConfig returns a session config with standard capture and
// playback shapes.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModel,
		Voice:           DefaultVoice,
		Input:           audio.Config{SampleRate: 16000, Channels: 1, BitsPerSample: 16},
		Output:          audio.Config{SampleRate: 24000, Channels: 1, BitsPerSample: 16},
		FrameSize:       DefaultFrameSize,
		TranscriptLimit: DefaultTranscriptLimit,
	}
}

// withDefaults fills zero-valued fields so a partially specified config
// still yields a working session.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.Input == (audio.Config{}) {
		c.Input = d.Input
	}
	if c.Output == (audio.Config{}) {
		c.Output = d.Output
	}
	if c.FrameSize <= 0 {
		c.FrameSize = d.FrameSize
	}
	if c.TranscriptLimit <= 0 {
		c.TranscriptLimit = d.TranscriptLimit
	}
	return c
}
