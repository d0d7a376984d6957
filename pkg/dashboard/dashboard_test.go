package dashboard

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func getJSON(t *testing.T, app *fiber.App, path string, out any) int {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestDashboardState(t *testing.T) {
	d := New(nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	d.RegisterRoutes(app)

	d.SetPlayback(true, 2)
	d.AddUserText("今日の天気は")
	d.AddReply("晴れです。")

	var state State
	if status := getJSON(t, app, "/api/dashboard/state", &state); status != 200 {
		t.Fatalf("status = %d", status)
	}
	if !state.Speaking || state.QueueLen != 2 {
		t.Errorf("state = %+v", state)
	}
	if state.LastUserText != "今日の天気は" || state.LastReply != "晴れです。" {
		t.Errorf("state texts = %+v", state)
	}
}

func TestDashboardConversation(t *testing.T) {
	d := New(nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	d.RegisterRoutes(app)

	d.AddUserText("こんにちは")
	d.AddReply("こんにちは。")
	d.AddReply("元気です。")

	var reply struct {
		Conversation []ConversationEntry `json:"conversation"`
	}
	getJSON(t, app, "/api/dashboard/conversation", &reply)

	if len(reply.Conversation) != 3 {
		t.Fatalf("got %d entries, want 3", len(reply.Conversation))
	}
	if reply.Conversation[0].Role != "user" || reply.Conversation[1].Role != "robot" {
		t.Errorf("roles = %s, %s", reply.Conversation[0].Role, reply.Conversation[1].Role)
	}
}

func TestDashboardUserTextReport(t *testing.T) {
	d := New(nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	d.RegisterRoutes(app)

	req := httptest.NewRequest("POST", "/api/dashboard/user_text",
		strings.NewReader(`{"text": "明日の予定は"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if got := d.State().LastUserText; got != "明日の予定は" {
		t.Errorf("last user text = %q", got)
	}
	var reply struct {
		Conversation []ConversationEntry `json:"conversation"`
	}
	getJSON(t, app, "/api/dashboard/conversation", &reply)
	if len(reply.Conversation) != 1 || reply.Conversation[0].Role != "user" {
		t.Fatalf("conversation = %+v", reply.Conversation)
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/dashboard/user_text",
			strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestDashboardConversationBounded(t *testing.T) {
	d := New(nil)
	for i := 0; i < maxConversation+10; i++ {
		d.AddReply("はい。")
	}

	d.mu.RLock()
	n := len(d.conversation)
	d.mu.RUnlock()
	if n != maxConversation {
		t.Errorf("conversation length = %d, want %d", n, maxConversation)
	}
}

func TestDashboardLogs(t *testing.T) {
	d := New(nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	d.RegisterRoutes(app)

	d.AddLog("speech", "queue drained")

	var reply struct {
		Logs []LogEntry `json:"logs"`
	}
	getJSON(t, app, "/api/dashboard/logs", &reply)
	if len(reply.Logs) != 1 || reply.Logs[0].Type != "speech" {
		t.Errorf("logs = %+v", reply.Logs)
	}
}

func TestWebsocketRouteRequiresUpgrade(t *testing.T) {
	d := New(nil)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	d.RegisterRoutes(app)

	if status := getJSON(t, app, "/ws/state", nil); status != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d, want upgrade required", status)
	}
}
