package vad

import (
	"errors"
	"time"
)

// Config holds tunable parameters for a capture session.
type Config struct {
	// DBThreshold is the signal level in decibels above which the
	// utterance is considered active.
	DBThreshold float64

	// SilenceTimeout closes the session once this much time has passed
	// since the last chunk above DBThreshold.
	SilenceTimeout time.Duration

	// StartTimeout closes the session if the utterance never becomes
	// active within this window. The resulting stream is empty.
	StartTimeout time.Duration

	// QueueSize bounds the frame queue between the capture callback and
	// the stream reader. Frames are dropped when the queue is full.
	QueueSize int
}

// DefaultConfig returns a Config with the stock capture parameters.
func DefaultConfig() Config {
	return Config{
		DBThreshold:    55.0,
		SilenceTimeout: 500 * time.Millisecond,
		StartTimeout:   4 * time.Second,
		QueueSize:      64,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SilenceTimeout <= 0 {
		return errors.New("vad: silence timeout must be positive")
	}
	if c.StartTimeout <= 0 {
		return errors.New("vad: start timeout must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("vad: queue size must be positive")
	}
	return nil
}

// WithThreshold returns a copy with the activation threshold set.
func (c Config) WithThreshold(db float64) Config {
	c.DBThreshold = db
	return c
}

// WithTimeouts returns a copy with the silence and start timeouts set.
func (c Config) WithTimeouts(silence, start time.Duration) Config {
	c.SilenceTimeout = silence
	c.StartTimeout = start
	return c
}
