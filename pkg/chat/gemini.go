package chat

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/akari-robotics/go-akari/pkg/motion"
	"github.com/akari-robotics/go-akari/pkg/sentence"
)

// DefaultGeminiModel is the model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// defaultTemperature keeps replies lively without drifting off persona.
const defaultTemperature = float32(0.7)

// Gemini is a Client backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini chat client. model may be empty to use
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("chat: create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With("component", "chat.gemini", "model", model),
	}, nil
}

// toContents converts a message history to the genai wire form. The system
// message, if present, is returned separately as a system instruction.
func toContents(messages []Message) ([]*genai.Content, *genai.Content) {
	var (
		contents []*genai.Content
		system   *genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, system
}

// chunkText concatenates the text parts of a streamed response chunk.
func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// Chat streams a plain reply, emitting complete sentences.
func (g *Gemini) Chat(ctx context.Context, messages []Message) (<-chan string, error) {
	contents, system := toContents(messages)
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(defaultTemperature),
		MaxOutputTokens:   1024,
		SystemInstruction: system,
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)

		splitter := sentence.NewSplitter()
		emit := func(frag string) bool {
			select {
			case out <- frag:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				g.logger.Warn("generation stream failed", "error", err)
				return
			}
			delta := chunkText(resp)
			for {
				frag, ok := splitter.Feed(delta)
				if !ok {
					break
				}
				if !emit(frag) {
					return
				}
				delta = ""
			}
		}
		if rest := splitter.Flush(); rest != "" {
			emit(rest)
		}
	}()
	return out, nil
}

// ChatWithMotion streams a reply in the structured motion/talk mode. The
// model emits a JSON object with a motion tag and the spoken text; the tag
// is surfaced through opts.OnMotion and the talk field is split into
// sentences as it arrives.
func (g *Gemini) ChatWithMotion(ctx context.Context, messages []Message, opts MotionChatOptions) (<-chan string, error) {
	contents, system := toContents(messages)

	talkSchema := &genai.Schema{
		Type:        genai.TypeString,
		Description: "回答",
	}
	if opts.ShortResponse {
		talkSchema.Enum = fillerResponses
	}
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(defaultTemperature),
		MaxOutputTokens:   1024,
		SystemInstruction: system,
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"motion": {
					Type:        genai.TypeString,
					Description: "動作",
					Enum:        motion.Labels(),
				},
				"talk": talkSchema,
			},
			Required: []string{"motion", "talk"},
		},
	}

	out := make(chan string, 8)
	go func() {
		defer close(out)

		parser := sentence.NewStreamParser(opts.OnMotion)
		emit := func(frag string) bool {
			select {
			case out <- frag:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, config) {
			if err != nil {
				g.logger.Warn("structured generation stream failed", "error", err)
				return
			}
			for _, frag := range parser.Feed(chunkText(resp)) {
				if !emit(frag) {
					return
				}
			}
		}
		if rest := parser.Flush(); rest != "" {
			emit(rest)
		}
	}()
	return out, nil
}

// Close releases the client. The genai client holds no persistent
// connection that needs tearing down.
func (g *Gemini) Close() error {
	return nil
}

// Verify Gemini implements Client at compile time.
var _ Client = (*Gemini)(nil)
