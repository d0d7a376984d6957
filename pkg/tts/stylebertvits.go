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

// Style-Bert-VITS2 defaults.
const (
	DefaultStyleBertVitsModelID = 0
	DefaultStyleBertVitsLength  = 1.0
	DefaultStyleBertVitsStyle   = "Neutral"
	DefaultStyleBertVitsWeight  = 1.0
)

// StyleBertVitsParams are the runtime-settable synthesis parameters.
// Nil fields keep their current value. ModelName takes precedence over
// ModelID and is resolved through /models/info.
type StyleBertVitsParams struct {
	ModelName   *string
	ModelID     *int
	Length      *float64
	Style       *string
	StyleWeight *float64
}

// StyleBertVits synthesizes speech through a local Style-Bert-VITS2
// server. Synthesis is a single GET /voice returning WAV.
type StyleBertVits struct {
	addr   string
	logger *slog.Logger

	mu          sync.Mutex
	modelID     int
	length      float64
	style       string
	styleWeight float64
}

// NewStyleBertVits creates a Style-Bert-VITS2 provider talking to host:port.
func NewStyleBertVits(addr string, logger *slog.Logger) *StyleBertVits {
	if logger == nil {
		logger = slog.Default()
	}
	return &StyleBertVits{
		addr:        addr,
		logger:      logger.With("component", "tts.stylebertvits"),
		modelID:     DefaultStyleBertVitsModelID,
		length:      DefaultStyleBertVitsLength,
		style:       DefaultStyleBertVitsStyle,
		styleWeight: DefaultStyleBertVitsWeight,
	}
}

// SetParam updates synthesis parameters. A model name lookup failure
// leaves the current model in place and returns the error.
func (s *StyleBertVits) SetParam(ctx context.Context, p StyleBertVitsParams) error {
	var modelID *int
	if p.ModelName != nil {
		id, err := s.modelIDFromName(ctx, *p.ModelName)
		if err != nil {
			return WrapError("stylebertvits", err)
		}
		modelID = &id
	} else if p.ModelID != nil {
		modelID = p.ModelID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if modelID != nil {
		s.modelID = *modelID
	}
	if p.Length != nil {
		s.length = *p.Length
	}
	if p.Style != nil {
		s.style = *p.Style
	}
	if p.StyleWeight != nil {
		s.styleWeight = *p.StyleWeight
	}
	s.logger.Info("stylebertvits params updated",
		"model_id", s.modelID, "length", s.length,
		"style", s.style, "style_weight", s.styleWeight)
	return nil
}

// modelIDFromName resolves a model name to its id via /models/info.
// The response maps id to model details; the name lives in id2spk["0"].
func (s *StyleBertVits) modelIDFromName(ctx context.Context, name string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/models/info", s.addr), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := s.roundTrip(req)
	if err != nil {
		return 0, err
	}

	var info map[string]struct {
		ID2Spk map[string]string `json:"id2spk"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return 0, err
	}

	for id, details := range info {
		if details.ID2Spk["0"] == name {
			n, err := strconv.Atoi(id)
			if err != nil {
				return 0, fmt.Errorf("tts: bad model id %q: %w", id, err)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("tts: model %q not found", name)
}

// Synthesize converts text to audio.
func (s *StyleBertVits) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	s.mu.Lock()
	q := url.Values{}
	q.Set("text", text)
	q.Set("model_id", strconv.Itoa(s.modelID))
	q.Set("length", strconv.FormatFloat(s.length, 'f', -1, 64))
	q.Set("style", s.style)
	q.Set("style_weight", strconv.FormatFloat(s.styleWeight, 'f', -1, 64))
	s.mu.Unlock()

	start := time.Now()

	u := fmt.Sprintf("http://%s/voice?%s", s.addr, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, WrapError("stylebertvits", err)
	}
	req.Header.Set("Accept", "audio/wav")

	wav, err := s.roundTrip(req)
	if err != nil {
		return nil, WrapError("stylebertvits", err)
	}

	samples, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, WrapError("stylebertvits", err)
	}

	return &AudioResult{
		Samples:    samples,
		SampleRate: rate,
		CharCount:  len([]rune(text)),
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (s *StyleBertVits) roundTrip(req *http.Request) ([]byte, error) {
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
			Provider:   "stylebertvits",
		}
	}
	return body, nil
}

// Health checks server reachability.
func (s *StyleBertVits) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/models/info", s.addr), nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return WrapError("stylebertvits", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "health check failed", Provider: "stylebertvits"}
	}
	return nil
}

// Close releases resources.
func (s *StyleBertVits) Close() error {
	return nil
}

// Verify StyleBertVits implements Provider at compile time.
var _ Provider = (*StyleBertVits)(nil)
