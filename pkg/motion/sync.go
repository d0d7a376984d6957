package motion

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Head synchronization constants, tuned for the robot's tilt axis.
const (
	// TickInterval is the control loop period.
	TickInterval = 150 * time.Millisecond

	// ResetInterval decays the rate to neutral when no level update has
	// arrived for this long, so the head does not freeze mid-gesture
	// when speech pauses.
	ResetInterval = 300 * time.Millisecond

	// RateDBMin and RateDBMax bound the playback level window mapped
	// onto the tilt rate.
	RateDBMin = 5.0
	RateDBMax = 40.0

	// TiltMin and TiltMax bound the head tilt angle in radians.
	TiltMin = -0.1
	TiltMax = 0.35

	// SyncPriority is the actuator priority used by the loop.
	SyncPriority = 3
)

// RateFromDB maps a playback level in decibels to a tilt rate in [0,1].
func RateFromDB(db float64) float64 {
	if db > RateDBMax {
		return 1.0
	}
	if db < RateDBMin {
		return 0.0
	}
	return (db - RateDBMin) / (RateDBMax - RateDBMin)
}

// TiltFromRate maps a tilt rate in [0,1] to a head angle in radians.
// Louder playback tips the head further down.
func TiltFromRate(rate float64) float64 {
	return -rate*(TiltMax-TiltMin) + TiltMax
}

// SyncLoop drives the head in time with speech playback. It runs on a
// fixed tick and dispatches a pose whenever the smoothed playback rate
// changed since the previous tick. The loop only acts while enabled;
// playback start enables it and turn completion disables it.
type SyncLoop struct {
	dispatcher Dispatcher
	logger     *slog.Logger

	mu         sync.Mutex
	enabled    bool
	rate       float64
	lastUpdate time.Time
}

// NewSyncLoop creates a sync loop driving the given dispatcher.
func NewSyncLoop(dispatcher Dispatcher, logger *slog.Logger) *SyncLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncLoop{
		dispatcher: dispatcher,
		logger:     logger.With("component", "motion.sync"),
	}
}

// UpdateDB feeds one playback chunk's level into the loop.
// Called from the playback worker per chunk written.
func (l *SyncLoop) UpdateDB(db float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rate = RateFromDB(db)
	l.lastUpdate = time.Now()
}

// Enable starts head control for the current turn.
func (l *SyncLoop) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = true
}

// Disable stops head control. The next Enable starts fresh.
func (l *SyncLoop) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = false
	l.rate = 0
}

// Enabled reports whether head control is active.
func (l *SyncLoop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Rate returns the current tilt rate.
func (l *SyncLoop) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// Run executes the control loop until ctx is cancelled. Dispatch failures
// are logged and ignored; a dispatch slower than the tick period skips the
// sleep instead of stacking ticks.
func (l *SyncLoop) Run(ctx context.Context) {
	prevRate := 0.0

	for {
		tickStart := time.Now()

		l.mu.Lock()
		enabled := l.enabled
		rate := l.rate
		stale := !l.lastUpdate.IsZero() && time.Since(l.lastUpdate) > ResetInterval
		if stale {
			l.rate = 0
		}
		l.mu.Unlock()

		if enabled && rate != prevRate {
			tilt := TiltFromRate(rate)
			if err := l.dispatcher.ClearMotion(ctx, SyncPriority); err != nil {
				l.logger.Warn("clear motion failed", "error", err)
			}
			if err := l.dispatcher.SetPos(ctx, tilt, SyncPriority); err != nil {
				l.logger.Warn("set pos failed", "error", err)
			}
			prevRate = rate
		}

		wait := TickInterval - time.Since(tickStart)
		if wait <= 0 {
			// Dispatch overran the period; go straight to the next tick.
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// ResetPose returns the head to its idle position. Called when a turn
// finishes playing.
func (l *SyncLoop) ResetPose(ctx context.Context) {
	if err := l.dispatcher.SetPos(ctx, TiltMax, SyncPriority); err != nil {
		l.logger.Warn("head reset failed", "error", err)
	}
}
