package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/akari-robotics/go-akari/internal/httpc"
)

// VoiceVox defaults.
const (
	DefaultVoiceVoxSpeaker = 8 // 春日部つむぎ
	DefaultVoiceVoxSpeed   = 1.0
)

// VoiceVoxParams are the runtime-settable synthesis parameters.
// Nil fields keep their current value.
type VoiceVoxParams struct {
	Speaker    *int
	SpeedScale *float64
}

// VoiceVox synthesizes speech through a local VoiceVox engine.
// Synthesis is two requests: /audio_query builds the prosody query,
// /synthesis renders it to WAV.
type VoiceVox struct {
	addr   string
	logger *slog.Logger

	mu         sync.Mutex
	speaker    int
	speedScale float64
}

// NewVoiceVox creates a VoiceVox provider talking to host:port.
func NewVoiceVox(addr string, logger *slog.Logger) *VoiceVox {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceVox{
		addr:       addr,
		logger:     logger.With("component", "tts.voicevox"),
		speaker:    DefaultVoiceVoxSpeaker,
		speedScale: DefaultVoiceVoxSpeed,
	}
}

// SetParam updates synthesis parameters. Unset fields are left unchanged.
func (v *VoiceVox) SetParam(p VoiceVoxParams) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p.Speaker != nil {
		v.speaker = *p.Speaker
	}
	if p.SpeedScale != nil {
		v.speedScale = *p.SpeedScale
	}
	v.logger.Info("voicevox params updated", "speaker", v.speaker, "speed_scale", v.speedScale)
}

// Synthesize converts text to audio.
func (v *VoiceVox) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	v.mu.Lock()
	speaker := v.speaker
	speed := v.speedScale
	v.mu.Unlock()

	start := time.Now()

	query, err := v.audioQuery(ctx, text, speaker, speed)
	if err != nil {
		return nil, WrapError("voicevox", err)
	}

	wav, err := v.synthesis(ctx, query, speaker)
	if err != nil {
		return nil, WrapError("voicevox", err)
	}

	samples, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, WrapError("voicevox", err)
	}

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		CharCount:  len([]rune(text)),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// audioQuery builds the synthesis query on the engine side. The engine
// takes everything as query parameters and returns a JSON query object
// that is passed verbatim to /synthesis.
func (v *VoiceVox) audioQuery(ctx context.Context, text string, speaker int, speed float64) ([]byte, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(speaker))
	q.Set("speedScale", strconv.FormatFloat(speed, 'f', -1, 64))
	q.Set("prePhonemeLength", "0")
	q.Set("postPhonemeLength", "0")

	u := fmt.Sprintf("http://%s/audio_query?%s", v.addr, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}

	return v.roundTrip(req)
}

func (v *VoiceVox) synthesis(ctx context.Context, query []byte, speaker int) ([]byte, error) {
	u := fmt.Sprintf("http://%s/synthesis?speaker=%d", v.addr, speaker)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(query)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return v.roundTrip(req)
}

func (v *VoiceVox) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Provider:   "voicevox",
		}
	}
	return body, nil
}

// Health checks engine reachability.
func (v *VoiceVox) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/version", v.addr), nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return WrapError("voicevox", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "health check failed", Provider: "voicevox"}
	}
	return nil
}

// Close releases resources. The HTTP client is shared, so nothing to do.
func (v *VoiceVox) Close() error {
	return nil
}

// Verify VoiceVox implements Provider at compile time.
var _ Provider = (*VoiceVox)(nil)
