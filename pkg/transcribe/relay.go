package transcribe

import (
	"context"
	"log/slog"
)

// DefaultProgressLen is the interim transcript length, in runes, past
// which a progress report is sent. Zero disables progress reporting.
const DefaultProgressLen = 8

// Relay consumes a recognizer's result stream and reports to the
// conversation service: at most one progress report per utterance once
// the interim transcript is long enough, then exactly one final report.
type Relay struct {
	reporter    Reporter
	progressLen int
	logger      *slog.Logger
}

// NewRelay creates a relay reporting to the given reporter.
func NewRelay(reporter Reporter, progressLen int, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		reporter:    reporter,
		progressLen: progressLen,
		logger:      logger.With("component", "transcribe.relay"),
	}
}

// Run drains results until the final one (or the channel closes) and
// returns the last transcript seen. Report failures are logged and
// ignored; the pipeline continues with the next utterance.
func (r *Relay) Run(ctx context.Context, results <-chan Result) string {
	var (
		transcript   string
		progressSent bool
	)

	for {
		var (
			res Result
			ok  bool
		)
		select {
		case <-ctx.Done():
			r.final(ctx, transcript)
			return transcript
		case res, ok = <-results:
		}
		if !ok {
			break
		}

		transcript = res.Text
		long := r.progressLen > 0 && len([]rune(transcript)) > r.progressLen

		if !res.IsFinal {
			if !progressSent && long {
				r.progress(ctx, transcript)
				progressSent = true
			}
			continue
		}

		// A final result that never crossed the threshold mid-stream
		// still gets its progress report before the final one.
		if !progressSent && long {
			r.progress(ctx, transcript)
		}
		break
	}

	r.final(ctx, transcript)
	return transcript
}

func (r *Relay) progress(ctx context.Context, text string) {
	r.logger.Debug("progress report", "chars", len([]rune(text)))
	if err := r.reporter.Report(ctx, text, false); err != nil {
		r.logger.Warn("progress report failed", "error", err)
	}
}

func (r *Relay) final(ctx context.Context, text string) {
	r.logger.Debug("final report", "chars", len([]rune(text)))
	if err := r.reporter.Report(ctx, text, true); err != nil {
		r.logger.Warn("final report failed", "error", err)
	}
}
