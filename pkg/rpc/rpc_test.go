package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func postBody(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	json.Unmarshal(data, &decoded)
	return resp.StatusCode, decoded
}

func TestSpeechServerToggle(t *testing.T) {
	var (
		mu     sync.Mutex
		states []bool
	)
	server := NewSpeechServer(func(enable bool) {
		mu.Lock()
		states = append(states, enable)
		mu.Unlock()
	}, nil)

	app := NewApp("speech")
	server.RegisterRoutes(app.Group("/api"))

	status, reply := postBody(t, app, "/api/speech/toggle", `{"enable":false}`)
	if status != 200 || reply["success"] != true {
		t.Errorf("toggle: status=%d reply=%v", status, reply)
	}
	postBody(t, app, "/api/speech/toggle", `{"enable":true}`)

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 2 || states[0] || !states[1] {
		t.Errorf("toggle states = %v, want [false true]", states)
	}
}

// mockConversation records conversation service calls.
type mockConversation struct {
	mu      sync.Mutex
	submits []struct {
		text     string
		isFinish bool
	}
	motionSent bool
	interrupts int
}

func (m *mockConversation) Submit(ctx context.Context, text string, isFinish bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submits = append(m.submits, struct {
		text     string
		isFinish bool
	}{text, isFinish})
	return nil
}

func (m *mockConversation) SendReservedMotion(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.motionSent
	m.motionSent = false
	return sent
}

func (m *mockConversation) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupts++
}

func TestConversationServer(t *testing.T) {
	conv := &mockConversation{motionSent: true}
	server := NewConversationServer(conv, nil)
	app := NewApp("chat")
	server.RegisterRoutes(app.Group("/api"))

	t.Run("set with explicit is_finish", func(t *testing.T) {
		status, reply := postBody(t, app, "/api/gpt/set", `{"text":"こんにちは","is_finish":false}`)
		if status != 200 || reply["success"] != true {
			t.Errorf("status=%d reply=%v", status, reply)
		}
		if len(conv.submits) != 1 || conv.submits[0].isFinish {
			t.Errorf("submits = %+v", conv.submits)
		}
	})

	t.Run("is_finish defaults to true", func(t *testing.T) {
		postBody(t, app, "/api/gpt/set", `{"text":"こんにちは"}`)
		last := conv.submits[len(conv.submits)-1]
		if !last.isFinish {
			t.Error("omitted is_finish should default to true")
		}
	})

	t.Run("motion returns reservation state", func(t *testing.T) {
		_, reply := postBody(t, app, "/api/gpt/motion", "")
		if reply["success"] != true {
			t.Errorf("first motion reply = %v, want success", reply)
		}
		_, reply = postBody(t, app, "/api/gpt/motion", "")
		if reply["success"] != false {
			t.Errorf("second motion reply = %v, want consumed reservation", reply)
		}
	})

	t.Run("interrupt", func(t *testing.T) {
		status, _ := postBody(t, app, "/api/gpt/interrupt", "")
		if status != 200 || conv.interrupts != 1 {
			t.Errorf("status=%d interrupts=%d", status, conv.interrupts)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		status, _ := postBody(t, app, "/api/gpt/set", `{`)
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})
}

// mockEngine records playback engine calls.
type mockEngine struct {
	mu           sync.Mutex
	texts        []string
	playing      bool
	interrupts   int
	sentenceEnds int
	gateOpen     bool
}

func (m *mockEngine) PutText(ctx context.Context, text string, playNow, blocking bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockEngine) SentenceEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentenceEnds++
}

func (m *mockEngine) Interrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupts++
}

func (m *mockEngine) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *mockEngine) EnableVoicePlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateOpen = true
}

func (m *mockEngine) DisableVoicePlay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateOpen = false
}

func TestVoiceServer(t *testing.T) {
	engine := &mockEngine{playing: true}
	server := NewVoiceServer(engine, nil)
	app := NewApp("voice")
	server.RegisterRoutes(app.Group("/api"))

	t.Run("text enqueues", func(t *testing.T) {
		status, _ := postBody(t, app, "/api/voice/text", `{"text":"こんにちは。"}`)
		if status != 200 {
			t.Fatalf("status = %d", status)
		}
		if len(engine.texts) != 1 || engine.texts[0] != "こんにちは。" {
			t.Errorf("texts = %v", engine.texts)
		}
	})

	t.Run("is_playing reflects engine", func(t *testing.T) {
		_, reply := postBody(t, app, "/api/voice/is_playing", "")
		if reply["is_playing"] != true {
			t.Errorf("reply = %v", reply)
		}
	})

	t.Run("play_flg drives the gate", func(t *testing.T) {
		postBody(t, app, "/api/voice/play_flg", `{"flg":true}`)
		if !engine.gateOpen {
			t.Error("gate should be open")
		}
		postBody(t, app, "/api/voice/play_flg", `{"flg":false}`)
		if engine.gateOpen {
			t.Error("gate should be closed")
		}
	})

	t.Run("sentence_end and interrupt", func(t *testing.T) {
		postBody(t, app, "/api/voice/sentence_end", "")
		postBody(t, app, "/api/voice/interrupt", "")
		if engine.sentenceEnds != 1 || engine.interrupts != 1 {
			t.Errorf("sentenceEnds=%d interrupts=%d", engine.sentenceEnds, engine.interrupts)
		}
	})

	t.Run("unconfigured backend param rejected", func(t *testing.T) {
		status, _ := postBody(t, app, "/api/voice/voicevox_param", `{"speaker":3}`)
		if status != fiber.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("head control callback", func(t *testing.T) {
		called := false
		withHead := NewVoiceServer(engine, nil, WithHeadControl(func() { called = true }))
		headApp := NewApp("voice")
		withHead.RegisterRoutes(headApp.Group("/api"))

		postBody(t, headApp, "/api/voice/start_head_control", "")
		if !called {
			t.Error("head control callback not invoked")
		}
	})
}

func TestHealthz(t *testing.T) {
	app := NewApp("voice")
	req := httptest.NewRequest("GET", "/healthz", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
