// Package vad turns a raw audio source into bounded utterances using
// energy-based voice activity detection.
//
// A Capture is single-shot: it watches the source's chunk stream, activates
// when the signal level crosses the configured threshold, and closes the
// stream once the signal has stayed below it for the silence timeout (or the
// start timeout expires with no speech at all). The caller opens a fresh
// Capture per utterance.
package vad

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

// pollInterval is how often Read re-checks an empty frame queue.
const pollInterval = 10 * time.Millisecond

// Capture is a single voice-activity-bounded capture session.
type Capture struct {
	cfg    Config
	source audioio.Source
	logger *slog.Logger
	id     string

	frames chan []int16
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	started   bool
	active    bool
	startedAt time.Time
	lastLoud  time.Time
}

// Open prepares a capture session over the given source.
// The source must not be started; Start owns its lifecycle.
func Open(source audioio.Source, cfg Config, logger *slog.Logger) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()

	return &Capture{
		cfg:    cfg,
		source: source,
		logger: logger.With("component", "vad", "session", id),
		id:     id,
		frames: make(chan []int16, cfg.QueueSize),
		done:   make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (c *Capture) ID() string {
	return c.id
}

// Start opens the audio device and begins watching for speech.
func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.startedAt = time.Now()
	c.mu.Unlock()

	if err := c.source.Start(ctx); err != nil {
		return err
	}

	go c.watch(ctx)

	c.logger.Debug("capture session started",
		"threshold_db", c.cfg.DBThreshold,
		"silence_timeout", c.cfg.SilenceTimeout,
	)

	return nil
}

// watch consumes source chunks and drives the activity state machine.
// It must never block on anything but the source channel itself.
func (c *Capture) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.shutdown("context cancelled")
			return
		case <-c.done:
			return
		case chunk, ok := <-c.source.Stream():
			if !ok {
				c.shutdown("source closed")
				return
			}
			c.observe(chunk)
		}
	}
}

func (c *Capture) observe(chunk audioio.Chunk) {
	level := chunk.Level()
	now := time.Now()

	c.mu.Lock()
	if level > c.cfg.DBThreshold {
		if !c.active {
			c.active = true
			c.logger.Debug("utterance started", "level_db", level)
		}
		c.lastLoud = now
	}
	active := c.active
	lastLoud := c.lastLoud
	startedAt := c.startedAt
	c.mu.Unlock()

	if active {
		select {
		case c.frames <- chunk.Samples:
		default:
			c.logger.Warn("frame queue full, dropping chunk")
		}
		if now.Sub(lastLoud) >= c.cfg.SilenceTimeout {
			c.shutdown("silence timeout")
		}
	} else if now.Sub(startedAt) >= c.cfg.StartTimeout {
		c.shutdown("start timeout, no speech detected")
	}
}

func (c *Capture) shutdown(reason string) {
	c.once.Do(func() {
		c.logger.Debug("capture session closed", "reason", reason)
		close(c.done)
		if err := c.source.Stop(); err != nil {
			c.logger.Warn("failed to stop audio source", "error", err)
		}
	})
}

// Read returns the next coalesced audio chunk of the utterance.
// All frames currently buffered are concatenated into a single chunk per
// call. It returns io.EOF once the session has closed and the queue is
// drained; whole frames only, nothing partial is emitted at close.
func (c *Capture) Read(ctx context.Context) (audioio.Chunk, error) {
	for {
		if samples, ok := c.drain(); ok {
			return audioio.Chunk{Samples: samples, SampleRate: c.source.Config().SampleRate}, nil
		}

		select {
		case <-ctx.Done():
			return audioio.Chunk{}, ctx.Err()
		case <-c.done:
			if samples, ok := c.drain(); ok {
				return audioio.Chunk{Samples: samples, SampleRate: c.source.Config().SampleRate}, nil
			}
			return audioio.Chunk{}, io.EOF
		case <-time.After(pollInterval):
		}
	}
}

func (c *Capture) drain() ([]int16, bool) {
	var samples []int16
	for {
		select {
		case frame := <-c.frames:
			samples = append(samples, frame...)
		default:
			return samples, len(samples) > 0
		}
	}
}

// Active reports whether speech has been detected in this session.
func (c *Capture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Done returns a channel closed when the session ends.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

// Close ends the session. Safe to call multiple times.
func (c *Capture) Close() error {
	c.shutdown("closed by caller")
	return nil
}
