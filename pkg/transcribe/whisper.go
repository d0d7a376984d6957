package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/akari-robotics/go-akari/internal/httpc"
	"github.com/akari-robotics/go-akari/pkg/audioio"
)

// ErrNoAudio is returned when an utterance contained no samples.
var ErrNoAudio = errors.New("transcribe: empty utterance")

// Whisper transcribes utterances through a whisper.cpp server. The server
// takes a whole WAV file per request, so there are no interim results:
// each utterance produces exactly one final transcript.
type Whisper struct {
	addr     string
	language string
	logger   *slog.Logger
}

// NewWhisper creates a recognizer talking to a whisper.cpp server at
// host:port. language may be empty for auto-detection.
func NewWhisper(addr, language string, logger *slog.Logger) *Whisper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Whisper{
		addr:     addr,
		language: language,
		logger:   logger.With("component", "transcribe.whisper"),
	}
}

// Recognize drains the utterance audio, submits it, and emits one final
// result. A failed request closes the stream without a result.
func (w *Whisper) Recognize(ctx context.Context, audio AudioReader) (<-chan Result, error) {
	out := make(chan Result, 1)
	go func() {
		defer close(out)

		samples, rate, err := drain(ctx, audio)
		if err != nil {
			w.logger.Warn("utterance audio unavailable", "error", err)
			return
		}

		text, err := w.transcribe(ctx, samples, rate)
		if err != nil {
			w.logger.Warn("transcription failed", "error", err)
			return
		}
		w.logger.Info("utterance transcribed", "chars", len([]rune(text)))

		select {
		case out <- Result{Text: text, IsFinal: true}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// drain reads the whole utterance. Read returns io.EOF once the capture
// session has closed and all frames are consumed.
func drain(ctx context.Context, audio AudioReader) ([]int16, int, error) {
	var (
		samples []int16
		rate    int
	)
	for {
		chunk, err := audio.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		samples = append(samples, chunk.Samples...)
		if chunk.SampleRate != 0 {
			rate = chunk.SampleRate
		}
	}
	if len(samples) == 0 {
		return nil, 0, ErrNoAudio
	}
	if rate == 0 {
		rate = audioio.SampleRate
	}
	return samples, rate, nil
}

type whisperReply struct {
	Text string `json:"text"`
}

func (w *Whisper) transcribe(ctx context.Context, samples []int16, rate int) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", "utterance.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audioio.EncodeWAV(samples, rate)); err != nil {
		return "", err
	}
	if err := form.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	if w.language != "" {
		if err := form.WriteField("language", w.language); err != nil {
			return "", err
		}
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	u := fmt.Sprintf("http://%s/inference", w.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe: whisper returned status %d", resp.StatusCode)
	}

	var reply whisperReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("transcribe: decode whisper reply: %w", err)
	}
	return strings.TrimSpace(reply.Text), nil
}

// Health probes the whisper server.
func (w *Whisper) Health(ctx context.Context) error {
	u := fmt.Sprintf("http://%s/", w.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("transcribe: whisper returned status %d", resp.StatusCode)
	}
	return nil
}

// Verify Whisper implements Recognizer at compile time.
var _ Recognizer = (*Whisper)(nil)
