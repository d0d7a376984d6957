package rpc

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/akari-robotics/go-akari/pkg/speech"
	"github.com/akari-robotics/go-akari/pkg/tts"
)

// PlaybackEngine is the behavior the voice server exposes. The speech
// queue engine implements it.
type PlaybackEngine interface {
	PutText(ctx context.Context, text string, playNow, blocking bool) error
	SentenceEnd()
	Interrupt()
	IsPlaying() bool
	EnableVoicePlay()
	DisableVoicePlay()
}

// Verify the engine satisfies PlaybackEngine at compile time.
var _ PlaybackEngine = (*speech.Engine)(nil)

// VoiceServer exposes the voice service operations: text enqueue, playback
// control, head control, and per-backend synthesis parameters. Backend
// fields left nil reject their param endpoint.
type VoiceServer struct {
	engine        PlaybackEngine
	voicevox      *tts.VoiceVox
	aivis         *tts.Aivis
	styleBertVits *tts.StyleBertVits
	onHeadControl func()
	onText        func(text string)
	logger        *slog.Logger
}

// VoiceServerOption configures a VoiceServer.
type VoiceServerOption func(*VoiceServer)

// WithVoiceVox enables the VoiceVox param endpoint.
func WithVoiceVox(v *tts.VoiceVox) VoiceServerOption {
	return func(s *VoiceServer) { s.voicevox = v }
}

// WithAivis enables the Aivis param endpoint.
func WithAivis(a *tts.Aivis) VoiceServerOption {
	return func(s *VoiceServer) { s.aivis = a }
}

// WithStyleBertVits enables the Style-Bert-VITS2 param endpoint.
func WithStyleBertVits(v *tts.StyleBertVits) VoiceServerOption {
	return func(s *VoiceServer) { s.styleBertVits = v }
}

// WithTextObserver sets a callback invoked for every enqueued sentence.
func WithTextObserver(fn func(text string)) VoiceServerOption {
	return func(s *VoiceServer) { s.onText = fn }
}

// WithHeadControl sets the callback run when head control is requested.
func WithHeadControl(fn func()) VoiceServerOption {
	return func(s *VoiceServer) { s.onHeadControl = fn }
}

// NewVoiceServer creates a voice service server.
func NewVoiceServer(engine PlaybackEngine, logger *slog.Logger, opts ...VoiceServerOption) *VoiceServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &VoiceServer{
		engine: engine,
		logger: logger.With("component", "rpc.voice"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type setTextRequest struct {
	Text string `json:"text"`
}

type playFlgRequest struct {
	Flg bool `json:"flg"`
}

type voicevoxParamRequest struct {
	Speaker    *int     `json:"speaker"`
	SpeedScale *float64 `json:"speed_scale"`
}

type aivisParamRequest struct {
	Speaker    *string  `json:"speaker"`
	Style      *string  `json:"style"`
	SpeedScale *float64 `json:"speed_scale"`
}

type styleBertVitsParamRequest struct {
	ModelName   *string  `json:"model_name"`
	Length      *float64 `json:"length"`
	Style       *string  `json:"style"`
	StyleWeight *float64 `json:"style_weight"`
}

type isPlayingReply struct {
	IsPlaying bool `json:"is_playing"`
}

// RegisterRoutes registers the voice service routes on api.
func (s *VoiceServer) RegisterRoutes(api fiber.Router) {
	voice := api.Group("/voice")

	voice.Post("/text", func(c *fiber.Ctx) error {
		var req setTextRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if err := s.engine.PutText(c.Context(), req.Text, true, false); err != nil {
			s.logger.Warn("enqueue failed", "error", err)
		}
		if s.onText != nil {
			s.onText(req.Text)
		}
		return ok(c)
	})

	voice.Post("/interrupt", func(c *fiber.Ctx) error {
		s.engine.Interrupt()
		return ok(c)
	})

	voice.Post("/play_flg", func(c *fiber.Ctx) error {
		var req playFlgRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		if req.Flg {
			s.engine.EnableVoicePlay()
		} else {
			s.engine.DisableVoicePlay()
		}
		return ok(c)
	})

	voice.Post("/is_playing", func(c *fiber.Ctx) error {
		return c.JSON(isPlayingReply{IsPlaying: s.engine.IsPlaying()})
	})

	voice.Post("/sentence_end", func(c *fiber.Ctx) error {
		s.engine.SentenceEnd()
		return ok(c)
	})

	voice.Post("/start_head_control", func(c *fiber.Ctx) error {
		if s.onHeadControl != nil {
			s.onHeadControl()
		}
		return ok(c)
	})

	voice.Post("/voicevox_param", func(c *fiber.Ctx) error {
		if s.voicevox == nil {
			return badRequest(c, errBackendDisabled("voicevox"))
		}
		var req voicevoxParamRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		s.voicevox.SetParam(tts.VoiceVoxParams{
			Speaker:    req.Speaker,
			SpeedScale: req.SpeedScale,
		})
		return ok(c)
	})

	voice.Post("/aivis_param", func(c *fiber.Ctx) error {
		if s.aivis == nil {
			return badRequest(c, errBackendDisabled("aivis"))
		}
		var req aivisParamRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		s.aivis.SetParam(tts.AivisParams{
			Speaker:    req.Speaker,
			Style:      req.Style,
			SpeedScale: req.SpeedScale,
		})
		return ok(c)
	})

	voice.Post("/style_bert_vits_param", func(c *fiber.Ctx) error {
		if s.styleBertVits == nil {
			return badRequest(c, errBackendDisabled("style_bert_vits"))
		}
		var req styleBertVitsParamRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		// A model name that fails to resolve keeps the current model.
		err := s.styleBertVits.SetParam(c.Context(), tts.StyleBertVitsParams{
			ModelName:   req.ModelName,
			Length:      req.Length,
			Style:       req.Style,
			StyleWeight: req.StyleWeight,
		})
		if err != nil {
			s.logger.Warn("style-bert-vits param update failed", "error", err)
		}
		return ok(c)
	})
}

type errBackendDisabled string

func (e errBackendDisabled) Error() string {
	return "rpc: backend not configured: " + string(e)
}
