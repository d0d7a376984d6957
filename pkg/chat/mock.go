package chat

import (
	"context"
	"sync"
)

// MockClient is a scripted Client for tests.
type MockClient struct {
	mu        sync.Mutex
	sentences []string
	motionTag string
	err       error
	calls     []MockCall
	closed    bool
}

// MockCall records one generation request.
type MockCall struct {
	Messages   []Message
	Structured bool
	Short      bool
}

// NewMockClient creates a client that streams the given sentences on every
// call.
func NewMockClient(sentences ...string) *MockClient {
	return &MockClient{sentences: sentences}
}

// WithMotion sets the motion tag delivered on structured calls.
func (m *MockClient) WithMotion(tag string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.motionTag = tag
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockClient) record(messages []Message, structured, short bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	history := make([]Message, len(messages))
	copy(history, messages)
	m.calls = append(m.calls, MockCall{Messages: history, Structured: structured, Short: short})
	return nil
}

func (m *MockClient) stream(ctx context.Context) <-chan string {
	m.mu.Lock()
	script := make([]string, len(m.sentences))
	copy(script, m.sentences)
	m.mu.Unlock()

	out := make(chan string, len(script))
	go func() {
		defer close(out)
		for _, s := range script {
			select {
			case <-ctx.Done():
				return
			case out <- s:
			}
		}
	}()
	return out
}

// Chat replays the scripted sentences.
func (m *MockClient) Chat(ctx context.Context, messages []Message) (<-chan string, error) {
	if err := m.record(messages, false, false); err != nil {
		return nil, err
	}
	return m.stream(ctx), nil
}

// ChatWithMotion replays the scripted sentences and delivers the configured
// motion tag first.
func (m *MockClient) ChatWithMotion(ctx context.Context, messages []Message, opts MotionChatOptions) (<-chan string, error) {
	if err := m.record(messages, true, opts.ShortResponse); err != nil {
		return nil, err
	}
	m.mu.Lock()
	tag := m.motionTag
	m.mu.Unlock()
	if tag != "" && opts.OnMotion != nil {
		opts.OnMotion(tag)
	}
	return m.stream(ctx), nil
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the recorded generation requests in order.
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Verify MockClient implements Client at compile time.
var _ Client = (*MockClient)(nil)
