package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double implementing Provider. It returns a fixed tone
// per request and records every text it was asked to synthesize.
type Mock struct {
	mu         sync.Mutex
	texts      []string
	err        error
	healthErr  error
	delay      time.Duration
	sampleRate int
	samples    int
	amplitude  int16
}

// NewMock creates a mock provider that returns 100ms of audio per call.
func NewMock() *Mock {
	return &Mock{
		sampleRate: 16000,
		samples:    1600,
		amplitude:  8000,
	}
}

// WithError makes Synthesize fail with err.
func (m *Mock) WithError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithHealthError makes Health fail with err.
func (m *Mock) WithHealthError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
	return m
}

// WithDelay makes every Synthesize call take d, simulating playback time
// for queue tests.
func (m *Mock) WithDelay(d time.Duration) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithAudio overrides the synthetic result shape.
func (m *Mock) WithAudio(samples, sampleRate int, amplitude int16) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = samples
	m.sampleRate = sampleRate
	m.amplitude = amplitude
	return m
}

// Synthesize records the text and returns a constant-amplitude buffer.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	err := m.err
	delay := m.delay
	n, rate, amp := m.samples, m.sampleRate, m.amplitude
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	samples := make([]int16, n)
	for i := range samples {
		samples[i] = amp
	}

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		CharCount:  len([]rune(text)),
	}, nil
}

// Health returns the configured health error.
func (m *Mock) Health(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthErr
}

// Close releases nothing.
func (m *Mock) Close() error {
	return nil
}

// Texts returns a copy of all synthesized texts in order.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)
