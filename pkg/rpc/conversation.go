package rpc

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/akari-robotics/go-akari/pkg/chat"
)

// Conversation is the behavior the conversation server exposes. The chat
// orchestrator implements it.
type Conversation interface {
	Submit(ctx context.Context, text string, isFinish bool) error
	SendReservedMotion(ctx context.Context) bool
	Interrupt()
}

// Verify the orchestrator satisfies Conversation at compile time.
var _ Conversation = (*chat.Orchestrator)(nil)

// ConversationServer exposes the conversation service operations.
type ConversationServer struct {
	conv   Conversation
	logger *slog.Logger
}

// NewConversationServer creates a conversation service server.
func NewConversationServer(conv Conversation, logger *slog.Logger) *ConversationServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationServer{
		conv:   conv,
		logger: logger.With("component", "rpc.conversation"),
	}
}

// setGptRequest is the body of POST /api/gpt/set. IsFinish defaults to
// true when omitted.
type setGptRequest struct {
	Text     string `json:"text"`
	IsFinish *bool  `json:"is_finish"`
}

// RegisterRoutes registers the conversation service routes on api.
func (s *ConversationServer) RegisterRoutes(api fiber.Router) {
	gpt := api.Group("/gpt")

	gpt.Post("/set", func(c *fiber.Ctx) error {
		var req setGptRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
		isFinish := true
		if req.IsFinish != nil {
			isFinish = *req.IsFinish
		}
		// Generation failures are transient collaborator faults: log and
		// acknowledge so the next transcript is handled normally.
		if err := s.conv.Submit(c.Context(), req.Text, isFinish); err != nil {
			s.logger.Warn("submit failed", "is_finish", isFinish, "error", err)
		}
		return ok(c)
	})

	gpt.Post("/motion", func(c *fiber.Ctx) error {
		sent := s.conv.SendReservedMotion(c.Context())
		return c.JSON(successReply{Success: sent})
	})

	gpt.Post("/interrupt", func(c *fiber.Ctx) error {
		s.conv.Interrupt()
		return ok(c)
	})
}
