package tts

import (
	"context"
	"encoding/json"
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

// AivisSpeech defaults.
const (
	DefaultAivisSpeaker = "Anneli"
	DefaultAivisStyle   = "ノーマル"
	DefaultAivisSpeed   = 1.0
)

// AivisParams are the runtime-settable synthesis parameters.
// Nil fields keep their current value.
type AivisParams struct {
	Speaker    *string
	Style      *string
	SpeedScale *float64
}

// Aivis synthesizes speech through a local AivisSpeech engine. The engine
// speaks the VoiceVox audio_query/synthesis API but addresses voices by
// speaker name plus emotional style, resolved to a numeric id through
// /speakers.
type Aivis struct {
	addr   string
	logger *slog.Logger

	mu         sync.Mutex
	speaker    string
	style      string
	speedScale float64
	speakerID  int
	resolved   bool
}

// NewAivis creates an AivisSpeech provider talking to host:port.
func NewAivis(addr string, logger *slog.Logger) *Aivis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aivis{
		addr:       addr,
		logger:     logger.With("component", "tts.aivis"),
		speaker:    DefaultAivisSpeaker,
		style:      DefaultAivisStyle,
		speedScale: DefaultAivisSpeed,
	}
}

// SetParam updates synthesis parameters. Changing the speaker or style
// forces a fresh id lookup on the next synthesis.
func (a *Aivis) SetParam(p AivisParams) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p.Speaker != nil {
		a.speaker = *p.Speaker
		a.resolved = false
	}
	if p.Style != nil {
		a.style = *p.Style
		a.resolved = false
	}
	if p.SpeedScale != nil {
		a.speedScale = *p.SpeedScale
	}
	a.logger.Info("aivis params updated",
		"speaker", a.speaker, "style", a.style, "speed_scale", a.speedScale)
}

// speakerInfo mirrors one entry of the engine's /speakers response.
type speakerInfo struct {
	Name   string `json:"name"`
	Styles []struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	} `json:"styles"`
}

// resolveSpeakerID maps the configured speaker name and style to the
// engine's numeric speaker id.
func (a *Aivis) resolveSpeakerID(ctx context.Context, name, style string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/speakers", a.addr), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := a.roundTrip(req)
	if err != nil {
		return 0, err
	}

	var speakers []speakerInfo
	if err := json.Unmarshal(body, &speakers); err != nil {
		return 0, err
	}

	for _, sp := range speakers {
		if sp.Name != name {
			continue
		}
		for _, st := range sp.Styles {
			if st.Name == style {
				return st.ID, nil
			}
		}
		return 0, fmt.Errorf("tts: style %q not found for speaker %q", style, name)
	}
	return 0, fmt.Errorf("tts: speaker %q not found", name)
}

// Synthesize converts text to audio.
func (a *Aivis) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	a.mu.Lock()
	name, style, speed := a.speaker, a.style, a.speedScale
	id, resolved := a.speakerID, a.resolved
	a.mu.Unlock()

	if !resolved {
		var err error
		id, err = a.resolveSpeakerID(ctx, name, style)
		if err != nil {
			return nil, WrapError("aivis", err)
		}
		a.mu.Lock()
		a.speakerID = id
		a.resolved = true
		a.mu.Unlock()
	}

	start := time.Now()

	query, err := a.audioQuery(ctx, text, id, speed)
	if err != nil {
		return nil, WrapError("aivis", err)
	}

	wav, err := a.synthesis(ctx, query, id)
	if err != nil {
		return nil, WrapError("aivis", err)
	}

	samples, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, WrapError("aivis", err)
	}

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		CharCount:  len([]rune(text)),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (a *Aivis) audioQuery(ctx context.Context, text string, speakerID int, speed float64) ([]byte, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("speaker", strconv.Itoa(speakerID))
	q.Set("speedScale", strconv.FormatFloat(speed, 'f', -1, 64))
	q.Set("prePhonemeLength", "0")
	q.Set("postPhonemeLength", "0")

	u := fmt.Sprintf("http://%s/audio_query?%s", a.addr, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return nil, err
	}
	return a.roundTrip(req)
}

func (a *Aivis) synthesis(ctx context.Context, query []byte, speakerID int) ([]byte, error) {
	u := fmt.Sprintf("http://%s/synthesis?speaker=%d", a.addr, speakerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(query)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.roundTrip(req)
}

func (a *Aivis) roundTrip(req *http.Request) ([]byte, error) {
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
			Provider:   "aivis",
		}
	}
	return body, nil
}

// Health checks engine reachability.
func (a *Aivis) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/speakers", a.addr), nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return WrapError("aivis", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "health check failed", Provider: "aivis"}
	}
	return nil
}

// Close releases resources.
func (a *Aivis) Close() error {
	return nil
}

// Verify Aivis implements Provider at compile time.
var _ Provider = (*Aivis)(nil)
