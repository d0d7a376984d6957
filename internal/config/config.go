// Package config provides configuration helpers for go-akari commands.
// Values come from the environment; cmd mains load a .env file first via
// godotenv so a single file can configure the whole pipeline.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Default service addresses. Each daemon binds one port and the others
// reach it over localhost unless overridden.
const (
	DefaultChatAddr   = "127.0.0.1:10001"
	DefaultVoiceAddr  = "127.0.0.1:10002"
	DefaultSpeechAddr = "127.0.0.1:10003"
	DefaultMotionAddr = "127.0.0.1:50055"
)

// Load reads a .env file if one exists. A missing file is not an error;
// production deployments set real environment variables instead.
func Load() {
	_ = godotenv.Load()
}

// Env returns the environment variable value or a default.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ChatAddr returns the conversation service address.
func ChatAddr() string {
	return Env("AKARI_CHAT_ADDR", DefaultChatAddr)
}

// VoiceAddr returns the voice service address.
func VoiceAddr() string {
	return Env("AKARI_VOICE_ADDR", DefaultVoiceAddr)
}

// SpeechAddr returns the speech service address.
func SpeechAddr() string {
	return Env("AKARI_SPEECH_ADDR", DefaultSpeechAddr)
}

// MotionAddr returns the motion server address.
func MotionAddr() string {
	return Env("AKARI_MOTION_ADDR", DefaultMotionAddr)
}

// GeminiAPIKey returns the Gemini API key, or "" when the chat backend
// should be disabled.
func GeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}

// LogLevel returns the logging level for the daemons.
func LogLevel() string {
	return Env("AKARI_LOG_LEVEL", "info")
}

// GeminiModel returns the Gemini model name override, or "" to use the
// client default.
func GeminiModel() string {
	return os.Getenv("GEMINI_MODEL")
}

// WhisperAddr returns the whisper.cpp transcription server address.
func WhisperAddr() string {
	return Env("WHISPER_ADDR", "127.0.0.1:8080")
}

// WhisperLanguage returns the transcription language hint, or "" for
// auto-detection.
func WhisperLanguage() string {
	return Env("WHISPER_LANGUAGE", "ja")
}

// VoiceVoxAddr returns the VoiceVox engine address.
func VoiceVoxAddr() string {
	return Env("VOICEVOX_ADDR", "127.0.0.1:52001")
}

// AivisAddr returns the AivisSpeech engine address.
func AivisAddr() string {
	return Env("AIVIS_ADDR", "127.0.0.1:10101")
}

// StyleBertVitsAddr returns the Style-Bert-VITS2 server address.
func StyleBertVitsAddr() string {
	return Env("STYLE_BERT_VITS_ADDR", "127.0.0.1:5000")
}
