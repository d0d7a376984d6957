// Package dashboard exposes a live view of the conversation pipeline:
// playback state, recent transcript/reply pairs, and a websocket event
// stream for monitoring the robot during a session.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/akari-robotics/go-akari/pkg/hub"
)

const (
	maxConversation = 100
	maxLogs         = 500
)

// State is the pipeline snapshot shown on the dashboard.
type State struct {
	Speaking     bool   `json:"speaking"`
	Listening    bool   `json:"listening"`
	QueueLen     int    `json:"queue_len"`
	LastUserText string `json:"last_user_text"`
	LastReply    string `json:"last_reply"`
}

// ConversationEntry is one spoken line.
type ConversationEntry struct {
	Time    string `json:"time"`
	Role    string `json:"role"` // user, robot
	Message string `json:"message"`
}

// LogEntry is one event line for the dashboard log pane.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, speech, motion, error
	Message string `json:"message"`
}

// Dashboard aggregates pipeline state and fans it out to subscribers.
type Dashboard struct {
	logger *slog.Logger

	mu           sync.RWMutex
	state        State
	conversation []ConversationEntry
	logs         []LogEntry

	stateHub *hub.Hub
	logHub   *hub.Hub
}

// New creates an empty dashboard.
func New(logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		logger:       logger.With("component", "dashboard"),
		conversation: make([]ConversationEntry, 0, maxConversation),
		logs:         make([]LogEntry, 0, maxLogs),
		stateHub:     hub.New("state", logger),
		logHub:       hub.New("logs", logger),
	}
}

// Start runs the broadcast hubs until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context) {
	go d.stateHub.Run(ctx)
	go d.logHub.Run(ctx)
}

// UpdateState applies update under the lock and broadcasts the result.
func (d *Dashboard) UpdateState(update func(*State)) {
	d.mu.Lock()
	update(&d.state)
	state := d.state
	d.mu.Unlock()

	d.stateHub.BroadcastJSON(state)
}

// SetPlayback records the speech queue's observable state.
func (d *Dashboard) SetPlayback(speaking bool, queueLen int) {
	d.UpdateState(func(s *State) {
		s.Speaking = speaking
		s.QueueLen = queueLen
	})
}

// AddUserText records a transcript line.
func (d *Dashboard) AddUserText(text string) {
	d.addConversation("user", text)
	d.UpdateState(func(s *State) { s.LastUserText = text })
}

// AddReply records a spoken reply sentence.
func (d *Dashboard) AddReply(text string) {
	d.addConversation("robot", text)
	d.UpdateState(func(s *State) { s.LastReply = text })
}

func (d *Dashboard) addConversation(role, message string) {
	entry := ConversationEntry{
		Time:    time.Now().Format("15:04:05"),
		Role:    role,
		Message: message,
	}
	d.mu.Lock()
	d.conversation = append(d.conversation, entry)
	if len(d.conversation) > maxConversation {
		d.conversation = d.conversation[1:]
	}
	d.mu.Unlock()
}

// AddLog records and broadcasts an event line.
func (d *Dashboard) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}
	d.mu.Lock()
	d.logs = append(d.logs, entry)
	if len(d.logs) > maxLogs {
		d.logs = d.logs[1:]
	}
	d.mu.Unlock()

	d.logHub.BroadcastJSON(entry)
}

// State returns the current snapshot.
func (d *Dashboard) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// RegisterRoutes mounts the dashboard API and websocket streams on app.
func (d *Dashboard) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/dashboard")

	api.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(d.State())
	})

	// The speech daemon reports recognized utterances here; replies are
	// fed in-process by the voice server's text observer.
	api.Post("/user_text", func(c *fiber.Ctx) error {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		}
		d.AddUserText(req.Text)
		return c.JSON(fiber.Map{"success": true})
	})

	api.Get("/conversation", func(c *fiber.Ctx) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return c.JSON(fiber.Map{"conversation": d.conversation})
	})

	api.Get("/logs", func(c *fiber.Ctx) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		return c.JSON(fiber.Map{"logs": d.logs})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(func(conn *websocket.Conn) {
		hub.NewClient(d.stateHub, conn).Run()
	}))
	app.Get("/ws/logs", websocket.New(func(conn *websocket.Conn) {
		hub.NewClient(d.logHub, conn).Run()
	}))
}
