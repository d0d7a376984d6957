package vad

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

const (
	// DefaultAmbientMargin is added to the measured ambient level to
	// derive an activation threshold when none is configured.
	DefaultAmbientMargin = 25.0

	// DefaultAmbientWindow is how long MeasureAmbient records.
	DefaultAmbientWindow = 2 * time.Second

	// quietFloorDB is reported when the room is digitally silent, so a
	// muted or disconnected mic still yields a usable threshold.
	quietFloorDB = 20.0
)

// MeasureAmbient records from the source for the given window and returns
// the ambient signal level in decibels. The source is stopped afterwards.
func MeasureAmbient(ctx context.Context, source audioio.Source, window time.Duration, logger *slog.Logger) (float64, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = DefaultAmbientWindow
	}

	if err := source.Start(ctx); err != nil {
		return 0, err
	}
	defer source.Stop()

	logger.Info("measuring ambient sound level", "window", window)

	var samples []int16
	deadline := time.After(window + window/2)
	need := int(float64(source.Config().SampleRate) * window.Seconds())

	for len(samples) < need {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline:
			// Source is slower than real time; measure what we have.
			goto done
		case chunk, ok := <-source.Stream():
			if !ok {
				goto done
			}
			samples = append(samples, chunk.Samples...)
		}
	}

done:
	level := audioio.Level(samples)
	if math.IsInf(level, -1) {
		level = quietFloorDB
	}

	logger.Info("ambient sound level measured", "level_db", level)
	return level, nil
}

// ThresholdFromAmbient derives an activation threshold from a measured
// ambient level.
func ThresholdFromAmbient(ambient, margin float64) float64 {
	return ambient + margin
}
