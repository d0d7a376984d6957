package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/akari-robotics/go-akari/internal/httpc"
	"github.com/akari-robotics/go-akari/pkg/chat"
	"github.com/akari-robotics/go-akari/pkg/transcribe"
	"github.com/akari-robotics/go-akari/pkg/tts"
)

// postJSON posts payload to url and decodes the JSON reply into out when
// out is non-nil.
func postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("rpc: %s returned status %d", url, resp.StatusCode)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// SpeechClient calls the speech service.
type SpeechClient struct {
	addr string
}

// NewSpeechClient creates a client for the speech service at host:port.
func NewSpeechClient(addr string) *SpeechClient {
	return &SpeechClient{addr: addr}
}

// Toggle enables or disables voice activity capture.
func (c *SpeechClient) Toggle(ctx context.Context, enable bool) error {
	url := fmt.Sprintf("http://%s/api/speech/toggle", c.addr)
	return postJSON(ctx, url, toggleRequest{Enable: enable}, nil)
}

// Health probes the speech service.
func (c *SpeechClient) Health(ctx context.Context) error {
	return health(ctx, c.addr)
}

// ConversationClient calls the conversation service. It satisfies the
// transcript reporter used by the speech relay.
type ConversationClient struct {
	addr string
}

// NewConversationClient creates a client for the conversation service at
// host:port.
func NewConversationClient(addr string) *ConversationClient {
	return &ConversationClient{addr: addr}
}

// Report forwards a transcript. isFinish marks the end of the utterance.
func (c *ConversationClient) Report(ctx context.Context, text string, isFinish bool) error {
	url := fmt.Sprintf("http://%s/api/gpt/set", c.addr)
	return postJSON(ctx, url, setGptRequest{Text: text, IsFinish: &isFinish}, nil)
}

// SendMotion dispatches the motion reserved by the last filler phase.
func (c *ConversationClient) SendMotion(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("http://%s/api/gpt/motion", c.addr)
	var reply successReply
	if err := postJSON(ctx, url, struct{}{}, &reply); err != nil {
		return false, err
	}
	return reply.Success, nil
}

// Interrupt cancels any in-flight generation.
func (c *ConversationClient) Interrupt(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/api/gpt/interrupt", c.addr)
	return postJSON(ctx, url, struct{}{}, nil)
}

// Health probes the conversation service.
func (c *ConversationClient) Health(ctx context.Context) error {
	return health(ctx, c.addr)
}

// Verify ConversationClient satisfies the relay's reporter at compile time.
var _ transcribe.Reporter = (*ConversationClient)(nil)

// VoiceClient calls the voice service. It satisfies the speaker used by
// the conversation orchestrator.
type VoiceClient struct {
	addr string
}

// NewVoiceClient creates a client for the voice service at host:port.
func NewVoiceClient(addr string) *VoiceClient {
	return &VoiceClient{addr: addr}
}

// Speak enqueues one sentence for synthesis and playback.
func (c *VoiceClient) Speak(ctx context.Context, text string) error {
	url := fmt.Sprintf("http://%s/api/voice/text", c.addr)
	return postJSON(ctx, url, setTextRequest{Text: text}, nil)
}

// SentenceEnd marks the current reply complete.
func (c *VoiceClient) SentenceEnd(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/api/voice/sentence_end", c.addr)
	return postJSON(ctx, url, struct{}{}, nil)
}

// Interrupt drains the playback queue.
func (c *VoiceClient) Interrupt(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/api/voice/interrupt", c.addr)
	return postJSON(ctx, url, struct{}{}, nil)
}

// SetPlayFlg opens or closes the playback gate.
func (c *VoiceClient) SetPlayFlg(ctx context.Context, flg bool) error {
	url := fmt.Sprintf("http://%s/api/voice/play_flg", c.addr)
	return postJSON(ctx, url, playFlgRequest{Flg: flg}, nil)
}

// IsPlaying reports whether playback is active or pending.
func (c *VoiceClient) IsPlaying(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("http://%s/api/voice/is_playing", c.addr)
	var reply isPlayingReply
	if err := postJSON(ctx, url, struct{}{}, &reply); err != nil {
		return false, err
	}
	return reply.IsPlaying, nil
}

// StartHeadControl enables speech-synchronized head motion.
func (c *VoiceClient) StartHeadControl(ctx context.Context) error {
	url := fmt.Sprintf("http://%s/api/voice/start_head_control", c.addr)
	return postJSON(ctx, url, struct{}{}, nil)
}

// ReportUserText forwards a recognized transcript line to the voice
// service's dashboard.
func (c *VoiceClient) ReportUserText(ctx context.Context, text string) error {
	url := fmt.Sprintf("http://%s/api/dashboard/user_text", c.addr)
	return postJSON(ctx, url, map[string]string{"text": text}, nil)
}

// SetVoicevoxParam updates VoiceVox synthesis parameters.
func (c *VoiceClient) SetVoicevoxParam(ctx context.Context, p tts.VoiceVoxParams) error {
	url := fmt.Sprintf("http://%s/api/voice/voicevox_param", c.addr)
	return postJSON(ctx, url, voicevoxParamRequest{
		Speaker:    p.Speaker,
		SpeedScale: p.SpeedScale,
	}, nil)
}

// SetAivisParam updates Aivis synthesis parameters.
func (c *VoiceClient) SetAivisParam(ctx context.Context, p tts.AivisParams) error {
	url := fmt.Sprintf("http://%s/api/voice/aivis_param", c.addr)
	return postJSON(ctx, url, aivisParamRequest{
		Speaker:    p.Speaker,
		Style:      p.Style,
		SpeedScale: p.SpeedScale,
	}, nil)
}

// SetStyleBertVitsParam updates Style-Bert-VITS2 synthesis parameters.
func (c *VoiceClient) SetStyleBertVitsParam(ctx context.Context, p tts.StyleBertVitsParams) error {
	url := fmt.Sprintf("http://%s/api/voice/style_bert_vits_param", c.addr)
	return postJSON(ctx, url, styleBertVitsParamRequest{
		ModelName:   p.ModelName,
		Length:      p.Length,
		Style:       p.Style,
		StyleWeight: p.StyleWeight,
	}, nil)
}

// Health probes the voice service.
func (c *VoiceClient) Health(ctx context.Context) error {
	return health(ctx, c.addr)
}

// Verify VoiceClient satisfies the orchestrator's speaker at compile time.
var _ chat.Speaker = (*VoiceClient)(nil)

func health(ctx context.Context, addr string) error {
	url := fmt.Sprintf("http://%s/healthz", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
