// speechd: voice activity capture service for the AKARI pipeline.
// Listens on the microphone, transcribes utterances, and relays
// transcripts to the conversation service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/akari-robotics/go-akari/internal/config"
	"github.com/akari-robotics/go-akari/internal/log"
	"github.com/akari-robotics/go-akari/pkg/audioio"
	"github.com/akari-robotics/go-akari/pkg/motion"
	"github.com/akari-robotics/go-akari/pkg/rpc"
	"github.com/akari-robotics/go-akari/pkg/transcribe"
	"github.com/akari-robotics/go-akari/pkg/vad"
)

var (
	addr      = flag.String("addr", "", "listen address (host:port)")
	margin    = flag.Float64("margin", 30, "dB margin above ambient level for voice activity")
	threshold = flag.Float64("threshold", 0, "fixed dB threshold (skips ambient measurement)")
	debug     = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	config.Load()
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.Daemon("speechd")

	listen := *addr
	if listen == "" {
		listen = config.SpeechAddr()
	}

	source := audioio.NewNullSource(audioio.DefaultConfig())
	recognizer := transcribe.NewWhisper(config.WhisperAddr(), config.WhisperLanguage(), logger)
	conv := rpc.NewConversationClient(config.ChatAddr())
	voice := rpc.NewVoiceClient(config.VoiceAddr())
	motions := motion.NewClient(config.MotionAddr(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vadCfg := vad.DefaultConfig()
	if *threshold > 0 {
		vadCfg = vadCfg.WithThreshold(*threshold)
	} else {
		ambient, err := vad.MeasureAmbient(ctx, source, vad.DefaultAmbientWindow, logger)
		if err != nil {
			logger.Error("ambient measurement failed", "error", err)
			os.Exit(1)
		}
		vadCfg = vadCfg.WithThreshold(vad.ThresholdFromAmbient(ambient, *margin))
	}
	logger.Info("voice activity threshold set", "db", vadCfg.DBThreshold)

	// The gate flips this while the robot is speaking.
	var enabled atomic.Bool
	enabled.Store(true)

	app := rpc.NewApp("speechd")
	rpc.NewSpeechServer(func(enable bool) {
		enabled.Store(enable)
	}, logger).RegisterRoutes(app.Group("/api"))

	go func() {
		logger.Info("speech service listening", "addr", listen)
		if err := app.Listen(listen); err != nil {
			logger.Error("server stopped", "error", err)
			cancel()
		}
	}()

	go captureLoop(ctx, logger, source, vadCfg, recognizer, conv, voice, motions, &enabled)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}

// captureLoop runs one capture session per utterance. Each session mutes
// robot playback, cues a listening nod, relays the transcript, then
// restores playback and flushes any reserved motion.
func captureLoop(
	ctx context.Context,
	logger *slog.Logger,
	source audioio.Source,
	vadCfg vad.Config,
	recognizer transcribe.Recognizer,
	conv *rpc.ConversationClient,
	voice *rpc.VoiceClient,
	motions motion.Dispatcher,
	enabled *atomic.Bool,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !enabled.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		if err := runSession(ctx, logger, source, vadCfg, recognizer, conv, voice, motions); err != nil {
			logger.Warn("capture session failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func runSession(
	ctx context.Context,
	logger *slog.Logger,
	source audioio.Source,
	vadCfg vad.Config,
	recognizer transcribe.Recognizer,
	conv *rpc.ConversationClient,
	voice *rpc.VoiceClient,
	motions motion.Dispatcher,
) error {
	sess, err := vad.Open(source, vadCfg, nil)
	if err != nil {
		return err
	}
	defer sess.Close()

	// Listening cue. All collaborator calls are best-effort.
	if err := voice.SetPlayFlg(ctx, false); err != nil {
		logger.Warn("mute playback failed", "error", err)
	}
	if err := voice.Interrupt(ctx); err != nil {
		logger.Warn("playback interrupt failed", "error", err)
	}
	if err := motions.SetMotion(ctx, motion.MotionNod, 3, true, false); err != nil {
		logger.Warn("nod cue failed", "error", err)
	}

	if err := sess.Start(ctx); err != nil {
		return err
	}

	results, err := recognizer.Recognize(ctx, sess)
	if err != nil {
		return err
	}
	relay := transcribe.NewRelay(conv, transcribe.DefaultProgressLen, nil)
	text := relay.Run(ctx, results)
	logger.Info("utterance relayed", "chars", len([]rune(text)))

	if text != "" {
		if err := voice.ReportUserText(ctx, text); err != nil {
			logger.Warn("dashboard report failed", "error", err)
		}
	}

	if err := voice.SetPlayFlg(ctx, true); err != nil {
		logger.Warn("unmute playback failed", "error", err)
	}
	if _, err := conv.SendMotion(ctx); err != nil {
		logger.Warn("reserved motion flush failed", "error", err)
	}
	return nil
}
