// Package tts provides a unified interface for speech synthesis backends.
//
// Three local-server backends are supported: VoiceVox, AivisSpeech and
// Style-Bert-VITS2. All of them return WAV audio over HTTP; the container
// is decoded in this package so callers receive raw PCM16 samples ready
// for the audio sink. All backends implement the Provider interface,
// enabling switching without changing caller code.
//
// Example usage:
//
//	provider := tts.NewVoiceVox("127.0.0.1:52001", nil)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "こんにちは。")
//	// result.Samples contains PCM16 audio
package tts

import (
	"context"
	"time"
)

// Provider defines the speech synthesis interface.
type Provider interface {
	// Synthesize converts text to audio, returning decoded PCM samples.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks backend reachability.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a complete synthesis result with the WAV container
// already stripped.
type AudioResult struct {
	// Samples contains mono PCM16 audio.
	Samples []int16

	// SampleRate of the synthesized audio in Hz.
	SampleRate int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis round-trip time in milliseconds.
	LatencyMs int64
}

// Duration returns the playback duration of the result.
func (r *AudioResult) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(r.Samples)) / float64(r.SampleRate) * float64(time.Second))
}
