// Package chat runs the conversation: language model backends that stream
// replies as complete sentences, and the orchestrator implementing the
// two-phase filler-then-final response protocol.
package chat

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the backend credential is missing.
	ErrNoAPIKey = errors.New("chat: API key required")

	// ErrNoBackend is returned when no chat backend is configured.
	ErrNoBackend = errors.New("chat: no backend available")
)

// Role identifies a message author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System creates a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User creates a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant creates an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// MotionChatOptions configure a structured motion/talk generation.
type MotionChatOptions struct {
	// ShortResponse restricts the reply to a fixed set of short filler
	// acknowledgements. Used for the fast phase while the user is still
	// speaking.
	ShortResponse bool

	// OnMotion receives the motion tag extracted from the stream.
	// Called at most once.
	OnMotion func(tag string)
}

// Client is a streaming chat backend. Replies arrive as complete
// sentences on the returned channel, which closes when the reply ends.
type Client interface {
	// Chat streams a plain reply.
	Chat(ctx context.Context, messages []Message) (<-chan string, error)

	// ChatWithMotion streams a reply in the structured motion/talk mode.
	ChatWithMotion(ctx context.Context, messages []Message, opts MotionChatOptions) (<-chan string, error)

	// Close releases backend resources.
	Close() error
}

// fillerResponses are the short acknowledgements the fast phase may pick
// from.
var fillerResponses = []string{
	"えーと。",
	"はい。",
	"うーん。",
	"そうですね。",
	"なるほど。",
	"まあ。",
	"えー。",
}
