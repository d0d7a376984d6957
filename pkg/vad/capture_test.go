package vad

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

func fastConfig() audioio.Config {
	cfg := audioio.DefaultConfig()
	cfg.FrameDuration = 5 * time.Millisecond
	return cfg
}

func TestConfigValidate(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("default config invalid: %v", err)
		}
	})

	t.Run("rejects zero silence timeout", func(t *testing.T) {
		cfg := DefaultConfig().WithTimeouts(0, time.Second)
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for zero silence timeout")
		}
	})
}

func TestCaptureNoSpeech(t *testing.T) {
	// A silent source must close via the start timeout with no data.
	src := audioio.NewMockSource(fastConfig(), nil)

	cfg := DefaultConfig().
		WithThreshold(50).
		WithTimeouts(50*time.Millisecond, 100*time.Millisecond)

	sess, err := Open(src, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := sess.Read(ctx); err != io.EOF {
		t.Errorf("Read = %v, want io.EOF", err)
	}
	if sess.Active() {
		t.Error("capture became active on silence")
	}
}

func TestCaptureUtterance(t *testing.T) {
	// Loud signal for 20 frames, silence after. The stream must stay open
	// through the silence timeout window past the last loud frame, then
	// close, yielding at least the loud portion of the audio.
	const loudFrames = 20

	src := audioio.NewMockSource(fastConfig(), nil,
		audioio.WithSineWave(440, 0.5),
		audioio.WithEnvelope(func(frame int) float64 {
			if frame < loudFrames {
				return 1
			}
			return 0
		}),
	)

	cfg := DefaultConfig().
		WithThreshold(50).
		WithTimeouts(60*time.Millisecond, 2*time.Second)

	sess, err := Open(src, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var total int
	for {
		chunk, err := sess.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		total += len(chunk.Samples)
	}

	if !sess.Active() {
		t.Error("capture never became active")
	}

	fc := fastConfig()
	frameSize := fc.FrameSize()
	if total < loudFrames*frameSize {
		t.Errorf("read %d samples, want at least %d (the loud portion)", total, loudFrames*frameSize)
	}

	select {
	case <-sess.Done():
	default:
		t.Error("session not closed after silence timeout")
	}
}

func TestCaptureCoalesce(t *testing.T) {
	// Frames buffered between reads must come back as one chunk.
	src := audioio.NewMockSource(fastConfig(), nil, audioio.WithSineWave(440, 0.5))

	cfg := DefaultConfig().
		WithThreshold(50).
		WithTimeouts(time.Second, 2*time.Second)

	sess, err := Open(src, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let several frames accumulate.
	time.Sleep(50 * time.Millisecond)

	chunk, err := sess.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	fc := fastConfig()
	if len(chunk.Samples) <= fc.FrameSize() {
		t.Errorf("expected coalesced chunk, got %d samples (one frame is %d)",
			len(chunk.Samples), fc.FrameSize())
	}
}

func TestCaptureSessionID(t *testing.T) {
	src := audioio.NewMockSource(fastConfig(), nil)
	a, err := Open(src, DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open(audioio.NewMockSource(fastConfig(), nil), DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("session IDs not unique: %q vs %q", a.ID(), b.ID())
	}
}

func TestMeasureAmbient(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("silent room hits the quiet floor", func(t *testing.T) {
		src := audioio.NewMockSource(fastConfig(), nil)
		level, err := MeasureAmbient(ctx, src, 30*time.Millisecond, nil)
		if err != nil {
			t.Fatalf("MeasureAmbient: %v", err)
		}
		if level != quietFloorDB {
			t.Errorf("level = %v, want quiet floor %v", level, quietFloorDB)
		}
	})

	t.Run("noisy room measures above the floor", func(t *testing.T) {
		src := audioio.NewMockSource(fastConfig(), nil, audioio.WithSineWave(440, 0.5))
		level, err := MeasureAmbient(ctx, src, 30*time.Millisecond, nil)
		if err != nil {
			t.Fatalf("MeasureAmbient: %v", err)
		}
		if level <= quietFloorDB {
			t.Errorf("level = %v, want above %v", level, quietFloorDB)
		}
	})

	t.Run("threshold derivation", func(t *testing.T) {
		if got := ThresholdFromAmbient(30, DefaultAmbientMargin); got != 55 {
			t.Errorf("threshold = %v, want 55", got)
		}
	})
}
