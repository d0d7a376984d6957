// Package motion talks to the robot's motion actuator service and keeps
// the head synchronized with speech playback.
//
// The actuator is an external collaborator: commands are idempotent
// pose-set operations with last-writer-wins semantics, and every dispatch
// is best-effort. A robot that cannot move still talks.
package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/akari-robotics/go-akari/internal/httpc"
)

// Dispatcher sends commands to the motion actuator service.
type Dispatcher interface {
	// SetMotion starts a named motion sequence.
	SetMotion(ctx context.Context, name string, priority int, repeat, clear bool) error

	// SetPos commands a head tilt pose in radians.
	SetPos(ctx context.Context, tilt float64, priority int) error

	// ClearMotion cancels queued motion at the given priority.
	ClearMotion(ctx context.Context, priority int) error
}

// Client is an HTTP Dispatcher for the motion service.
type Client struct {
	addr   string
	logger *slog.Logger
}

// NewClient creates a motion service client talking to host:port.
func NewClient(addr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		addr:   addr,
		logger: logger.With("component", "motion"),
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	u := fmt.Sprintf("http://%s%s", c.addr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("motion: %s returned %d", path, resp.StatusCode)
	}
	return nil
}

// SetMotion starts a named motion sequence.
func (c *Client) SetMotion(ctx context.Context, name string, priority int, repeat, clear bool) error {
	return c.post(ctx, "/api/motion/set", map[string]any{
		"name":     name,
		"priority": priority,
		"repeat":   repeat,
		"clear":    clear,
	})
}

// SetPos commands a head tilt pose.
func (c *Client) SetPos(ctx context.Context, tilt float64, priority int) error {
	return c.post(ctx, "/api/motion/set_pos", map[string]any{
		"tilt":     tilt,
		"priority": priority,
	})
}

// ClearMotion cancels queued motion at the given priority.
func (c *Client) ClearMotion(ctx context.Context, priority int) error {
	return c.post(ctx, "/api/motion/clear", map[string]any{
		"priority": priority,
	})
}

// Verify Client implements Dispatcher at compile time.
var _ Dispatcher = (*Client)(nil)

// MockDispatcher records dispatched commands for tests.
type MockDispatcher struct {
	mu      sync.Mutex
	motions []string
	poses   []float64
	clears  int
	err     error
}

// NewMockDispatcher creates an empty mock.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// WithError makes every dispatch fail with err.
func (m *MockDispatcher) WithError(err error) *MockDispatcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// SetMotion records the motion name.
func (m *MockDispatcher) SetMotion(ctx context.Context, name string, priority int, repeat, clear bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.motions = append(m.motions, name)
	return nil
}

// SetPos records the tilt angle.
func (m *MockDispatcher) SetPos(ctx context.Context, tilt float64, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.poses = append(m.poses, tilt)
	return nil
}

// ClearMotion counts clears.
func (m *MockDispatcher) ClearMotion(ctx context.Context, priority int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clears++
	return nil
}

// Motions returns the recorded motion names.
func (m *MockDispatcher) Motions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.motions))
	copy(out, m.motions)
	return out
}

// Poses returns the recorded tilt angles.
func (m *MockDispatcher) Poses() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.poses))
	copy(out, m.poses)
	return out
}

// Clears returns the recorded clear count.
func (m *MockDispatcher) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Verify MockDispatcher implements Dispatcher at compile time.
var _ Dispatcher = (*MockDispatcher)(nil)
