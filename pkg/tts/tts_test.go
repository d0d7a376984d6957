package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDecodeWAV(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		in := []int16{0, 1000, -1000, 32767, -32768}
		wav := encodeWAV(in, 24000)

		out, rate, err := decodeWAV(wav)
		if err != nil {
			t.Fatalf("decodeWAV: %v", err)
		}
		if rate != 24000 {
			t.Errorf("rate = %d, want 24000", rate)
		}
		if len(out) != len(in) {
			t.Fatalf("len = %d, want %d", len(out), len(in))
		}
		for i := range in {
			if out[i] != in[i] {
				t.Errorf("sample %d: %d != %d", i, out[i], in[i])
			}
		}
	})

	t.Run("rejects garbage", func(t *testing.T) {
		if _, _, err := decodeWAV([]byte("not a wav file at all")); !errors.Is(err, ErrBadAudio) {
			t.Errorf("err = %v, want ErrBadAudio", err)
		}
	})

	t.Run("rejects truncated header", func(t *testing.T) {
		if _, _, err := decodeWAV([]byte("RIFF")); !errors.Is(err, ErrBadAudio) {
			t.Errorf("err = %v, want ErrBadAudio", err)
		}
	})
}

func TestAudioResultDuration(t *testing.T) {
	r := &AudioResult{Samples: make([]int16, 16000), SampleRate: 16000}
	if d := r.Duration().Seconds(); d < 0.99 || d > 1.01 {
		t.Errorf("duration = %v, want ~1s", d)
	}
}

func TestVoiceVox(t *testing.T) {
	var gotQuery, gotSynthesis bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/audio_query":
			gotQuery = true
			if r.URL.Query().Get("text") != "こんにちは。" {
				t.Errorf("text = %q", r.URL.Query().Get("text"))
			}
			if r.URL.Query().Get("speaker") != "8" {
				t.Errorf("speaker = %q, want default 8", r.URL.Query().Get("speaker"))
			}
			json.NewEncoder(w).Encode(map[string]any{"speedScale": 1.0})
		case "/synthesis":
			gotSynthesis = true
			if r.URL.Query().Get("speaker") != "8" {
				t.Errorf("synthesis speaker = %q", r.URL.Query().Get("speaker"))
			}
			w.Write(encodeWAV([]int16{1, 2, 3, 4}, 24000))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	v := NewVoiceVox(strings.TrimPrefix(srv.URL, "http://"), nil)
	defer v.Close()

	result, err := v.Synthesize(context.Background(), "こんにちは。")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !gotQuery || !gotSynthesis {
		t.Error("missing audio_query or synthesis request")
	}
	if result.SampleRate != 24000 || len(result.Samples) != 4 {
		t.Errorf("result = %d samples at %d Hz", len(result.Samples), result.SampleRate)
	}
	if result.CharCount != 6 {
		t.Errorf("CharCount = %d, want 6 runes", result.CharCount)
	}

	t.Run("empty text", func(t *testing.T) {
		if _, err := v.Synthesize(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
			t.Errorf("err = %v, want ErrEmptyText", err)
		}
	})

	t.Run("param override", func(t *testing.T) {
		speaker := 3
		v.SetParam(VoiceVoxParams{Speaker: &speaker})
		v.mu.Lock()
		got := v.speaker
		speed := v.speedScale
		v.mu.Unlock()
		if got != 3 {
			t.Errorf("speaker = %d, want 3", got)
		}
		if speed != DefaultVoiceVoxSpeed {
			t.Errorf("speed changed to %v without being set", speed)
		}
	})
}

func TestVoiceVoxServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewVoiceVox(strings.TrimPrefix(srv.URL, "http://"), nil)
	_, err := v.Synthesize(context.Background(), "test.")
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !apiErr.IsServerError() || !apiErr.IsRetryable() {
		t.Errorf("500 not classified as retryable server error")
	}
}

func TestAivisSpeakerResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/speakers":
			json.NewEncoder(w).Encode([]map[string]any{
				{
					"name": "Anneli",
					"styles": []map[string]any{
						{"name": "ノーマル", "id": 888753760},
						{"name": "通常", "id": 888753761},
					},
				},
			})
		case "/audio_query":
			if r.URL.Query().Get("speaker") != "888753760" {
				t.Errorf("speaker id = %q, want resolved 888753760", r.URL.Query().Get("speaker"))
			}
			json.NewEncoder(w).Encode(map[string]any{"speedScale": 1.0})
		case "/synthesis":
			w.Write(encodeWAV([]int16{5, 6}, 44100))
		}
	}))
	defer srv.Close()

	a := NewAivis(strings.TrimPrefix(srv.URL, "http://"), nil)
	defer a.Close()

	result, err := a.Synthesize(context.Background(), "テスト。")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.SampleRate != 44100 {
		t.Errorf("rate = %d", result.SampleRate)
	}

	t.Run("unknown speaker", func(t *testing.T) {
		name := "誰か"
		a.SetParam(AivisParams{Speaker: &name})
		if _, err := a.Synthesize(context.Background(), "テスト。"); err == nil {
			t.Error("expected error for unknown speaker")
		}
	})
}

func TestStyleBertVits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/voice":
			q := r.URL.Query()
			if q.Get("model_id") != "2" || q.Get("style") != "Neutral" {
				t.Errorf("voice params = %v", q)
			}
			w.Write(encodeWAV([]int16{9, 9, 9}, 44100))
		case "/models/info":
			json.NewEncoder(w).Encode(map[string]any{
				"0": map[string]any{"id2spk": map[string]string{"0": "jvnv-F1-jp"}},
				"2": map[string]any{"id2spk": map[string]string{"0": "koharune-ami"}},
			})
		}
	}))
	defer srv.Close()

	s := NewStyleBertVits(strings.TrimPrefix(srv.URL, "http://"), nil)
	defer s.Close()

	name := "koharune-ami"
	if err := s.SetParam(context.Background(), StyleBertVitsParams{ModelName: &name}); err != nil {
		t.Fatalf("SetParam: %v", err)
	}

	result, err := s.Synthesize(context.Background(), "テスト。")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(result.Samples) != 3 {
		t.Errorf("samples = %d, want 3", len(result.Samples))
	}

	t.Run("unknown model name", func(t *testing.T) {
		bad := "no-such-model"
		if err := s.SetParam(context.Background(), StyleBertVitsParams{ModelName: &bad}); err == nil {
			t.Error("expected error for unknown model")
		}
	})
}

func TestChain(t *testing.T) {
	t.Run("first success wins", func(t *testing.T) {
		good := NewMock()
		backup := NewMock()
		chain, err := NewChain(nil, good, backup)
		if err != nil {
			t.Fatalf("NewChain: %v", err)
		}

		if _, err := chain.Synthesize(context.Background(), "hi."); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if len(good.Texts()) != 1 || len(backup.Texts()) != 0 {
			t.Error("request did not stop at the first provider")
		}
	})

	t.Run("falls back on failure", func(t *testing.T) {
		bad := NewMock().WithError(errors.New("down"))
		good := NewMock()
		chain, _ := NewChain(nil, bad, good)

		if _, err := chain.Synthesize(context.Background(), "hi."); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if len(good.Texts()) != 1 {
			t.Error("fallback provider not used")
		}
	})

	t.Run("aggregates all failures", func(t *testing.T) {
		a := NewMock().WithError(errors.New("a down"))
		b := NewMock().WithError(errors.New("b down"))
		chain, _ := NewChain(nil, a, b)

		_, err := chain.Synthesize(context.Background(), "hi.")
		var chainErr *ChainError
		if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
			t.Errorf("err = %v, want ChainError with 2 entries", err)
		}
	})

	t.Run("requires a provider", func(t *testing.T) {
		if _, err := NewChain(nil); !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("err = %v, want ErrProviderUnavailable", err)
		}
	})
}
