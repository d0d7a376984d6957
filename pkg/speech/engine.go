// Package speech implements the synthesis-and-playback queue engine.
//
// Sentences are enqueued as they stream in from the conversation layer and
// a single worker synthesizes and plays them strictly in order. Playback is
// gated: closing the gate pauses consumption without clearing the queue.
// A turn is finished when the queue drains and either the end-of-turn
// signal arrived or no sentence has been enqueued for the timeout.
package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/akari-robotics/go-akari/pkg/audioio"
	"github.com/akari-robotics/go-akari/pkg/tts"
)

// Engine timing defaults.
const (
	// DefaultSentenceEndTimeout ends a turn when the queue has sat empty
	// this long with no end-of-turn signal. Upstream sentence delivery is
	// itself streamed with irregular gaps, so this is a safety net, not
	// the primary completion path.
	DefaultSentenceEndTimeout = 5 * time.Second

	// pollInterval paces the worker loop and blocking PutText waits.
	pollInterval = 10 * time.Millisecond

	// playChunkSamples is the slice size written to the sink per step,
	// and the granularity of the playback level callback.
	playChunkSamples = 1024
)

// Config holds engine tuning parameters.
type Config struct {
	SentenceEndTimeout time.Duration
}

// DefaultConfig returns the stock engine parameters.
func DefaultConfig() Config {
	return Config{SentenceEndTimeout: DefaultSentenceEndTimeout}
}

// PlaybackState is a snapshot of the engine's playback lifecycle.
type PlaybackState struct {
	Queued               bool
	Playing              bool
	Finished             bool
	SentenceEndRequested bool
	LastEnqueueAt        time.Time
}

// Engine is the speech queue engine.
type Engine struct {
	cfg      Config
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger

	mu          sync.Mutex
	queue       []string
	gateOpen    bool
	playing     bool
	started     bool
	finished    bool
	sentenceEnd bool
	queueStart  bool
	lastEnqueue time.Time

	onStart  func()
	onLevel  func(db float64)
	onFinish func()

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewEngine creates an engine playing through the given provider and sink.
func NewEngine(provider tts.Provider, sink audioio.Sink, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SentenceEndTimeout <= 0 {
		cfg.SentenceEndTimeout = DefaultSentenceEndTimeout
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "speech"),
		finished: true,
		stopCh:   make(chan struct{}),
	}
}

// OnStart registers a callback invoked once per turn, when its first
// sentence is dequeued for playback. Used to start the head motion loop.
func (e *Engine) OnStart(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStart = fn
}

// OnLevel registers a callback invoked with the signal level in decibels
// of each playback chunk as it is written to the sink. Used to drive the
// head motion loop.
func (e *Engine) OnLevel(fn func(db float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLevel = fn
}

// OnFinish registers a callback invoked when a turn finishes playing.
func (e *Engine) OnFinish(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinish = fn
}

// Start launches the worker loop.
func (e *Engine) Start(ctx context.Context) {
	go e.worker(ctx)
}

// Stop terminates the worker loop.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case <-time.After(pollInterval):
		}

		e.mu.Lock()
		if !e.gateOpen {
			e.mu.Unlock()
			continue
		}

		if len(e.queue) > 0 {
			text := e.queue[0]
			e.queue = e.queue[1:]
			e.queueStart = true
			e.lastEnqueue = time.Now()
			e.playing = true
			var onStart func()
			if !e.started {
				e.started = true
				onStart = e.onStart
			}
			e.mu.Unlock()

			if onStart != nil {
				onStart()
			}
			e.play(ctx, text)

			e.mu.Lock()
			e.playing = false
			e.mu.Unlock()
			continue
		}

		timedOut := e.queueStart && time.Since(e.lastEnqueue) > e.cfg.SentenceEndTimeout
		if e.sentenceEnd || timedOut {
			e.finished = true
			e.started = false
			e.queueStart = false
			e.sentenceEnd = false
			e.gateOpen = false
			onFinish := e.onFinish
			e.mu.Unlock()

			e.logger.Debug("turn finished", "timed_out", timedOut)
			if onFinish != nil {
				onFinish()
			}
			continue
		}
		e.mu.Unlock()
	}
}

// play synthesizes one sentence and writes it to the sink in small chunks,
// publishing the level of each chunk. Synthesis and playback failures are
// logged and swallowed; the pipeline moves on to the next sentence.
func (e *Engine) play(ctx context.Context, text string) {
	result, err := e.provider.Synthesize(ctx, text)
	if err != nil {
		e.logger.Warn("synthesis failed", "error", err, "chars", len([]rune(text)))
		return
	}

	samples := result.Samples
	rate := result.SampleRate
	if want := e.sink.Config().SampleRate; want != 0 && want != rate {
		samples = audioio.Resample(samples, rate, want)
		rate = want
	}

	e.mu.Lock()
	onLevel := e.onLevel
	e.mu.Unlock()

	for off := 0; off < len(samples); off += playChunkSamples {
		end := off + playChunkSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunk := audioio.Chunk{Samples: samples[off:end], SampleRate: rate}

		if onLevel != nil {
			onLevel(chunk.Level())
		}
		if err := e.sink.Write(ctx, chunk); err != nil {
			e.logger.Warn("playback write failed", "error", err)
			return
		}
	}

	if err := e.sink.Flush(ctx); err != nil {
		e.logger.Warn("playback flush failed", "error", err)
	}
}

// PutText enqueues a sentence for synthesis. If playNow the play gate is
// opened; if blocking the call waits until the whole turn has finished
// playing.
func (e *Engine) PutText(ctx context.Context, text string, playNow, blocking bool) error {
	e.mu.Lock()
	if playNow {
		e.gateOpen = true
	}
	e.queue = append(e.queue, text)
	e.finished = false
	e.lastEnqueue = time.Now()
	e.queueStart = true
	e.mu.Unlock()

	if !blocking {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			return nil
		case <-time.After(pollInterval):
		}
		e.mu.Lock()
		finished := e.finished
		e.mu.Unlock()
		if finished {
			return nil
		}
	}
}

// SentenceEnd marks the current turn as complete: no more sentences are
// coming, so the engine may finish as soon as the queue drains.
func (e *Engine) SentenceEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sentenceEnd = true
}

// Interrupt drains the queue without playing the remaining items. An item
// already mid-playback still completes.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := len(e.queue)
	e.queue = nil
	if dropped > 0 {
		e.logger.Info("queue interrupted", "dropped", dropped)
	}
}

// IsPlaying reports whether a turn is still in flight: true while at least
// one item is queued or playing, false once the queue has drained and the
// turn was closed out.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.finished
}

// EnableVoicePlay opens the play gate.
func (e *Engine) EnableVoicePlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gateOpen = true
}

// DisableVoicePlay closes the play gate. The queue is kept; consumption
// resumes when the gate reopens.
func (e *Engine) DisableVoicePlay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gateOpen = false
}

// State returns a snapshot of the playback lifecycle.
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return PlaybackState{
		Queued:               len(e.queue) > 0,
		Playing:              e.playing,
		Finished:             e.finished,
		SentenceEndRequested: e.sentenceEnd,
		LastEnqueueAt:        e.lastEnqueue,
	}
}

// QueueLen returns the number of sentences waiting to be played.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
