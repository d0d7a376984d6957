package rpc

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// SpeechServer exposes the capture service's toggle operation. The toggle
// callback enables or disables voice activity capture.
type SpeechServer struct {
	toggle func(enable bool)
	logger *slog.Logger
}

// NewSpeechServer creates a speech service server.
func NewSpeechServer(toggle func(enable bool), logger *slog.Logger) *SpeechServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechServer{
		toggle: toggle,
		logger: logger.With("component", "rpc.speech"),
	}
}

// toggleRequest is the body of POST /api/speech/toggle.
type toggleRequest struct {
	Enable bool `json:"enable"`
}

// RegisterRoutes registers the speech service routes on api.
func (s *SpeechServer) RegisterRoutes(api fiber.Router) {
	speech := api.Group("/speech")

	speech.Post("/toggle", func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		s.logger.Info("capture toggled", "enable", req.Enable)
		s.toggle(req.Enable)
		return ok(c)
	})
}
