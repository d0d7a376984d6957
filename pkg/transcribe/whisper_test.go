package transcribe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akari-robotics/go-akari/pkg/audioio"
)

// scriptedAudio replays chunks then reports end of utterance.
type scriptedAudio struct {
	chunks []audioio.Chunk
	next   int
}

func (s *scriptedAudio) Read(ctx context.Context) (audioio.Chunk, error) {
	if s.next >= len(s.chunks) {
		return audioio.Chunk{}, io.EOF
	}
	chunk := s.chunks[s.next]
	s.next++
	return chunk, nil
}

func utteranceAudio(frames int) *scriptedAudio {
	audio := &scriptedAudio{}
	for i := 0; i < frames; i++ {
		audio.chunks = append(audio.chunks, audioio.Chunk{
			Samples:    make([]int16, audioio.FrameSamples),
			SampleRate: audioio.SampleRate,
		})
	}
	return audio
}

func TestWhisperRecognize(t *testing.T) {
	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing audio file: %v", err)
		} else {
			data, _ := io.ReadAll(file)
			file.Close()
			if _, _, err := audioio.DecodeWAV(data); err != nil {
				t.Errorf("uploaded audio not WAV: %v", err)
			}
		}
		gotLanguage = r.FormValue("language")
		json.NewEncoder(w).Encode(map[string]string{"text": " こんにちは、あかりです。\n"})
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	whisper := NewWhisper(addr, "ja", nil)

	results, err := whisper.Recognize(context.Background(), utteranceAudio(3))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}

	var got []Result
	for res := range results {
		got = append(got, res)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want one final", len(got))
	}
	if !got[0].IsFinal || got[0].Text != "こんにちは、あかりです。" {
		t.Errorf("result = %+v", got[0])
	}
	if gotLanguage != "ja" {
		t.Errorf("language = %q, want ja", gotLanguage)
	}
}

func TestWhisperServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusInternalServerError)
	}))
	defer srv.Close()

	whisper := NewWhisper(strings.TrimPrefix(srv.URL, "http://"), "", nil)
	results, err := whisper.Recognize(context.Background(), utteranceAudio(1))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	for res := range results {
		t.Errorf("unexpected result %+v after server error", res)
	}
}

func TestWhisperEmptyUtterance(t *testing.T) {
	whisper := NewWhisper("127.0.0.1:1", "", nil)
	results, err := whisper.Recognize(context.Background(), &scriptedAudio{})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	for res := range results {
		t.Errorf("unexpected result %+v for empty utterance", res)
	}
}
