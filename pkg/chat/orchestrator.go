package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/akari-robotics/go-akari/pkg/motion"
)

// systemPrompt fixes the robot's persona for every conversation.
const systemPrompt = "チャットボットとしてロールプレイします。" +
	"あかりという名前のカメラロボットとして振る舞ってください。" +
	"性格はポジティブで元気です。"

// finalSuffix asks for a single concise sentence on the full utterance.
const finalSuffix = "。一文で簡潔に答えてください。"

// minSubmitRunes is the transcript length below which a report is ignored.
const minSubmitRunes = 2

// Speaker receives reply sentences for playback. The voice service client
// implements this.
type Speaker interface {
	// Speak enqueues one sentence for synthesis and playback.
	Speak(ctx context.Context, text string) error

	// SentenceEnd marks the reply complete so playback can finish as soon
	// as the queue drains.
	SentenceEnd(ctx context.Context) error
}

// Orchestrator drives the two-phase response protocol. Progress reports
// trigger a fast structured generation that picks a filler acknowledgement
// and a motion; the final report triggers the full reply, which is the only
// phase committed to history.
type Orchestrator struct {
	client     Client
	speaker    Speaker
	dispatcher motion.Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	history  []Message
	reserved string
	cancel   context.CancelFunc
}

// NewOrchestrator creates an orchestrator with a fresh history seeded with
// the persona prompt.
func NewOrchestrator(client Client, speaker Speaker, dispatcher motion.Dispatcher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:     client,
		speaker:    speaker,
		dispatcher: dispatcher,
		logger:     logger.With("component", "chat.orchestrator"),
		history:    []Message{System(systemPrompt)},
	}
}

// History returns a copy of the committed conversation history.
func (o *Orchestrator) History() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.history))
	copy(out, o.history)
	return out
}

// Submit handles one transcript report. isFinish selects the phase: the
// final transcript produces the full reply and commits both turns to
// history; a progress transcript produces only the uncommitted filler
// phase. Transcripts shorter than two characters are ignored.
func (o *Orchestrator) Submit(ctx context.Context, text string, isFinish bool) error {
	if len([]rune(text)) < minSubmitRunes {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.setCancel(cancel)
	defer o.setCancel(nil)

	if isFinish {
		return o.finalPhase(ctx, text)
	}
	return o.fillerPhase(ctx, text)
}

func (o *Orchestrator) setCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
}

// finalPhase generates the full reply. The user turn is committed before
// generation starts so an interrupt cannot lose it; the assistant turn is
// appended once the stream ends.
func (o *Orchestrator) finalPhase(ctx context.Context, text string) error {
	turn := User(text + finalSuffix)

	o.mu.Lock()
	o.history = append(o.history, turn)
	messages := make([]Message, len(o.history))
	copy(messages, o.history)
	o.mu.Unlock()

	stream, err := o.client.Chat(ctx, messages)
	if err != nil {
		return err
	}

	var reply strings.Builder
	for frag := range stream {
		reply.WriteString(frag)
		if err := o.speaker.Speak(ctx, frag); err != nil {
			o.logger.Warn("speak failed", "error", err)
		}
	}
	if err := o.speaker.SentenceEnd(ctx); err != nil {
		o.logger.Warn("sentence end failed", "error", err)
	}

	o.mu.Lock()
	o.history = append(o.history, Assistant(reply.String()))
	o.mu.Unlock()

	o.logger.Info("final reply", "chars", len([]rune(reply.String())))
	return nil
}

// fillerPhase generates a short acknowledgement and reserves the extracted
// motion for later dispatch. Nothing is committed to history.
func (o *Orchestrator) fillerPhase(ctx context.Context, text string) error {
	o.mu.Lock()
	messages := make([]Message, len(o.history))
	copy(messages, o.history)
	o.mu.Unlock()
	messages = append(messages, User(text+"。"))

	stream, err := o.client.ChatWithMotion(ctx, messages, MotionChatOptions{
		ShortResponse: true,
		OnMotion:      o.reserveMotion,
	})
	if err != nil {
		return err
	}

	for frag := range stream {
		if err := o.speaker.Speak(ctx, frag); err != nil {
			o.logger.Warn("speak failed", "error", err)
		}
	}
	return nil
}

// reserveMotion stores the motion named by the model, replacing any prior
// reservation. Unknown tags are dropped.
func (o *Orchestrator) reserveMotion(tag string) {
	name, ok := motion.FromLabel(tag)
	if !ok {
		o.logger.Warn("unknown motion tag", "tag", tag)
		return
	}
	o.mu.Lock()
	o.reserved = name
	o.mu.Unlock()
	o.logger.Debug("motion reserved", "motion", name)
}

// SendReservedMotion dispatches the reserved motion, if any, and clears the
// reservation. With nothing reserved it clears any running motion instead
// and reports false.
func (o *Orchestrator) SendReservedMotion(ctx context.Context) bool {
	o.mu.Lock()
	name := o.reserved
	o.reserved = ""
	o.mu.Unlock()

	if name == "" {
		if err := o.dispatcher.ClearMotion(ctx, 0); err != nil {
			o.logger.Warn("clear motion failed", "error", err)
		}
		return false
	}
	if err := o.dispatcher.SetMotion(ctx, name, motion.SyncPriority, false, true); err != nil {
		o.logger.Warn("set motion failed", "motion", name, "error", err)
		return false
	}
	return true
}

// Interrupt cancels any in-flight generation.
func (o *Orchestrator) Interrupt() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
