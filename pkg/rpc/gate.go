package rpc

import (
	"context"
	"log/slog"
	"time"
)

// Gate poll timing.
const (
	// DefaultGateInterval is the playback poll period.
	DefaultGateInterval = 100 * time.Millisecond

	// gateBackoffInitial and gateBackoffMax bound the readiness retry.
	gateBackoffInitial = 500 * time.Millisecond
	gateBackoffMax     = 5 * time.Second
)

// PlaybackProbe reports playback state. The voice client satisfies this.
type PlaybackProbe interface {
	IsPlaying(ctx context.Context) (bool, error)
	Health(ctx context.Context) error
}

// CaptureToggle enables or disables voice capture. The speech client
// satisfies this.
type CaptureToggle interface {
	Toggle(ctx context.Context, enable bool) error
	Health(ctx context.Context) error
}

var (
	_ PlaybackProbe = (*VoiceClient)(nil)
	_ CaptureToggle = (*SpeechClient)(nil)
)

// Gate watches playback and mutes capture while the robot is speaking, so
// its own voice is never transcribed as user input. Capture is re-enabled
// when playback stops.
type Gate struct {
	playback PlaybackProbe
	capture  CaptureToggle
	interval time.Duration
	logger   *slog.Logger
}

// NewGate creates a gate polling at the given interval. A non-positive
// interval uses DefaultGateInterval.
func NewGate(playback PlaybackProbe, capture CaptureToggle, interval time.Duration, logger *slog.Logger) *Gate {
	if interval <= 0 {
		interval = DefaultGateInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		playback: playback,
		capture:  capture,
		interval: interval,
		logger:   logger.With("component", "rpc.gate"),
	}
}

// waitReady blocks until probe succeeds, retrying with capped backoff.
// Connection-not-ready is transient; only ctx cancellation gives up.
func (g *Gate) waitReady(ctx context.Context, name string, probe func(context.Context) error) error {
	backoff := gateBackoffInitial
	for {
		if err := probe(ctx); err == nil {
			g.logger.Info("service ready", "service", name)
			return nil
		} else {
			g.logger.Debug("service not ready", "service", name, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > gateBackoffMax {
			backoff = gateBackoffMax
		}
	}
}

// Run polls playback until ctx is cancelled. Poll failures carry no new
// information and leave the capture state untouched; a failed toggle is
// retried on the next transition-observing tick.
func (g *Gate) Run(ctx context.Context) error {
	if err := g.waitReady(ctx, "voice", g.playback.Health); err != nil {
		return err
	}
	if err := g.waitReady(ctx, "speech", g.capture.Health); err != nil {
		return err
	}

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	playing := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now, err := g.playback.IsPlaying(ctx)
		if err != nil {
			g.logger.Debug("playback poll failed", "error", err)
			continue
		}
		if now == playing {
			continue
		}

		// Playback start mutes capture; playback end restores it.
		if err := g.capture.Toggle(ctx, !now); err != nil {
			g.logger.Warn("capture toggle failed", "enable", !now, "error", err)
			continue
		}
		g.logger.Info("capture gated", "playing", now)
		playing = now
	}
}
