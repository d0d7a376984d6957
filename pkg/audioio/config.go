// Package audioio provides audio capture and playback primitives for the
// conversation pipeline.
//
// The pipeline runs on a fixed format end to end: 16kHz mono PCM16 in
// 100ms frames. Platform device bindings implement the Source and Sink
// interfaces; the mock implementations in this package cover CI and tests
// without hardware.
package audioio

import (
	"fmt"
	"time"
)

// Pipeline audio format constants.
const (
	// SampleRate is the capture and playback sample rate in Hz.
	SampleRate = 16000

	// FrameDuration is the size of one capture frame.
	FrameDuration = 100 * time.Millisecond

	// FrameSamples is the number of samples per capture frame (rate/10).
	FrameSamples = SampleRate / 10
)

// Config holds audio device configuration.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	Channels int `json:"channels"`

	// FrameDuration is the size of audio frames.
	FrameDuration time.Duration `json:"frame_duration"`

	// Device is the platform-specific device identifier.
	Device string `json:"device"`
}

// DefaultConfig returns the pipeline's fixed capture format.
func DefaultConfig() Config {
	return Config{
		SampleRate:    SampleRate,
		Channels:      1,
		FrameDuration: FrameDuration,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.FrameDuration <= 0 {
		return fmt.Errorf("frame_duration must be positive, got %v", c.FrameDuration)
	}
	return nil
}

// FrameSize returns the number of samples per frame.
func (c *Config) FrameSize() int {
	return int(float64(c.SampleRate) * c.FrameDuration.Seconds())
}

// FrameBytes returns the size of a frame in bytes (int16 samples).
func (c *Config) FrameBytes() int {
	return c.FrameSize() * c.Channels * 2
}
