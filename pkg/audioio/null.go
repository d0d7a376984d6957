package audioio

import (
	"context"
	"sync"
	"time"
)

// NullSource produces silent frames at the configured real-time rate. It
// stands in for a capture device on hosts without audio hardware.
type NullSource struct {
	cfg Config

	mu      sync.Mutex
	stream  chan Chunk
	stop    chan struct{}
	started bool
}

// NewNullSource creates a silent capture source.
func NewNullSource(cfg Config) *NullSource {
	return &NullSource{cfg: cfg}
}

func (s *NullSource) Name() string   { return "null" }
func (s *NullSource) Config() Config { return s.cfg }

// Start begins emitting silent frames.
func (s *NullSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.stream = make(chan Chunk, 8)
	s.stop = make(chan struct{})
	s.started = true
	go s.run(s.stream, s.stop)
	return nil
}

func (s *NullSource) run(stream chan Chunk, stop chan struct{}) {
	defer close(stream)
	ticker := time.NewTicker(s.cfg.FrameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		chunk := Chunk{
			Samples:    make([]int16, s.cfg.FrameSize()),
			SampleRate: s.cfg.SampleRate,
		}
		select {
		case stream <- chunk:
		default:
		}
	}
}

// Stream returns the frame channel.
func (s *NullSource) Stream() <-chan Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// Stop halts frame production and closes the stream.
func (s *NullSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	close(s.stop)
	s.started = false
	return nil
}

// Close is Stop.
func (s *NullSource) Close() error { return s.Stop() }

// Verify NullSource implements Source at compile time.
var _ Source = (*NullSource)(nil)

// NullSink discards samples while pacing writes at the real-time playback
// rate, so queue and timing behavior upstream stay realistic without an
// output device.
type NullSink struct {
	cfg Config
}

// NewNullSink creates a discarding playback sink.
func NewNullSink(cfg Config) *NullSink {
	return &NullSink{cfg: cfg}
}

func (s *NullSink) Name() string   { return "null" }
func (s *NullSink) Config() Config { return s.cfg }

func (s *NullSink) Start(ctx context.Context) error { return nil }
func (s *NullSink) Stop() error                     { return nil }

// Write sleeps for the chunk's play duration and discards it.
func (s *NullSink) Write(ctx context.Context, chunk Chunk) error {
	rate := chunk.SampleRate
	if rate == 0 {
		rate = s.cfg.SampleRate
	}
	wait := time.Duration(len(chunk.Samples)) * time.Second / time.Duration(rate)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}
	return nil
}

func (s *NullSink) Flush(ctx context.Context) error { return nil }
func (s *NullSink) Clear() error                    { return nil }
func (s *NullSink) Close() error                    { return nil }

// Verify NullSink implements Sink at compile time.
var _ Sink = (*NullSink)(nil)
