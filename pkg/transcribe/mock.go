package transcribe

import (
	"context"
	"sync"
)

// MockRecognizer replays a scripted result sequence.
type MockRecognizer struct {
	results []Result
}

// NewMockRecognizer creates a recognizer that emits the given results in
// order, then closes the stream.
func NewMockRecognizer(results ...Result) *MockRecognizer {
	return &MockRecognizer{results: results}
}

// Recognize replays the script.
func (m *MockRecognizer) Recognize(ctx context.Context, audio AudioReader) (<-chan Result, error) {
	out := make(chan Result)
	go func() {
		defer close(out)
		for _, res := range m.results {
			select {
			case <-ctx.Done():
				return
			case out <- res:
			}
		}
	}()
	return out, nil
}

// Verify MockRecognizer implements Recognizer at compile time.
var _ Recognizer = (*MockRecognizer)(nil)

// MockReporter records every report for tests.
type MockReporter struct {
	mu      sync.Mutex
	reports []ReportCall
	err     error
}

// ReportCall is one recorded Report invocation.
type ReportCall struct {
	Text     string
	IsFinish bool
}

// NewMockReporter creates an empty reporter.
func NewMockReporter() *MockReporter {
	return &MockReporter{}
}

// WithError makes every Report fail with err.
func (m *MockReporter) WithError(err error) *MockReporter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Report records the call.
func (m *MockReporter) Report(ctx context.Context, text string, isFinish bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reports = append(m.reports, ReportCall{Text: text, IsFinish: isFinish})
	return nil
}

// Reports returns the recorded calls in order.
func (m *MockReporter) Reports() []ReportCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReportCall, len(m.reports))
	copy(out, m.reports)
	return out
}

// Verify MockReporter implements Reporter at compile time.
var _ Reporter = (*MockReporter)(nil)
