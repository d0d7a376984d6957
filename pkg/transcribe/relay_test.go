package transcribe

import (
	"context"
	"testing"
)

func runRelay(t *testing.T, progressLen int, results ...Result) (*MockReporter, string) {
	t.Helper()

	rec := NewMockRecognizer(results...)
	reporter := NewMockReporter()
	relay := NewRelay(reporter, progressLen, nil)

	ctx := context.Background()
	stream, err := rec.Recognize(ctx, nil)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	final := relay.Run(ctx, stream)
	return reporter, final
}

func TestRelay(t *testing.T) {
	t.Run("progress once then final", func(t *testing.T) {
		reporter, final := runRelay(t, 8,
			Result{Text: "こんにちは"},
			Result{Text: "こんにちは、今日はいい"},
			Result{Text: "こんにちは、今日はいい天気"},
			Result{Text: "こんにちは、今日はいい天気ですね", IsFinal: true},
		)

		if final != "こんにちは、今日はいい天気ですね" {
			t.Errorf("final transcript = %q", final)
		}

		reports := reporter.Reports()
		if len(reports) != 2 {
			t.Fatalf("got %d reports, want progress + final", len(reports))
		}
		if reports[0].IsFinish {
			t.Error("first report should be progress")
		}
		if reports[0].Text != "こんにちは、今日はいい" {
			t.Errorf("progress text = %q", reports[0].Text)
		}
		if !reports[1].IsFinish {
			t.Error("last report should be final")
		}
	})

	t.Run("short interim skips progress", func(t *testing.T) {
		reporter, _ := runRelay(t, 8,
			Result{Text: "はい"},
			Result{Text: "はい", IsFinal: true},
		)

		reports := reporter.Reports()
		if len(reports) != 1 || !reports[0].IsFinish {
			t.Errorf("reports = %+v, want only final", reports)
		}
	})

	t.Run("long final without interim still gets progress first", func(t *testing.T) {
		reporter, _ := runRelay(t, 8,
			Result{Text: "こんにちは、今日はいい天気ですね", IsFinal: true},
		)

		reports := reporter.Reports()
		if len(reports) != 2 {
			t.Fatalf("got %d reports, want 2", len(reports))
		}
		if reports[0].IsFinish || !reports[1].IsFinish {
			t.Errorf("report order wrong: %+v", reports)
		}
	})

	t.Run("zero progress length disables progress", func(t *testing.T) {
		reporter, _ := runRelay(t, 0,
			Result{Text: "こんにちは、今日はいい天気"},
			Result{Text: "こんにちは、今日はいい天気ですね", IsFinal: true},
		)

		reports := reporter.Reports()
		if len(reports) != 1 || !reports[0].IsFinish {
			t.Errorf("reports = %+v, want only final", reports)
		}
	})

	t.Run("empty utterance reports empty final", func(t *testing.T) {
		reporter, final := runRelay(t, 8)
		if final != "" {
			t.Errorf("final = %q, want empty", final)
		}
		reports := reporter.Reports()
		if len(reports) != 1 || !reports[0].IsFinish || reports[0].Text != "" {
			t.Errorf("reports = %+v, want one empty final", reports)
		}
	})

	t.Run("report failure does not abort the relay", func(t *testing.T) {
		rec := NewMockRecognizer(
			Result{Text: "こんにちは、今日はいい天気"},
			Result{Text: "こんにちは、今日はいい天気ですね", IsFinal: true},
		)
		reporter := NewMockReporter().WithError(context.DeadlineExceeded)
		relay := NewRelay(reporter, 8, nil)

		ctx := context.Background()
		stream, _ := rec.Recognize(ctx, nil)
		final := relay.Run(ctx, stream)
		if final != "こんにちは、今日はいい天気ですね" {
			t.Errorf("final = %q despite reporter failures", final)
		}
	})
}
