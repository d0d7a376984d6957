// Package transcribe defines the speech-to-text boundary and the relay
// that forwards transcripts to the conversation service.
//
// The vendor recognizer itself is a thin external collaborator behind the
// Recognizer interface; the logic that matters lives in Relay, which
// decides when an interim transcript is worth a progress report and always
// closes the utterance with a final report.
package transcribe

import (
	"context"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

// Result is one incremental transcription result.
type Result struct {
	// Text is the transcript so far.
	Text string

	// IsFinal marks the last result of the utterance.
	IsFinal bool
}

// AudioReader yields coalesced utterance audio. A vad.Capture satisfies
// this; Read returns io.EOF when the utterance ends.
type AudioReader interface {
	Read(ctx context.Context) (audioio.Chunk, error)
}

// Recognizer streams transcription results for one utterance's audio.
// The returned channel is closed when the utterance is fully transcribed
// or the stream fails.
type Recognizer interface {
	Recognize(ctx context.Context, audio AudioReader) (<-chan Result, error)
}

// Reporter receives transcript reports. The conversation service client
// implements this.
type Reporter interface {
	Report(ctx context.Context, text string, isFinish bool) error
}
