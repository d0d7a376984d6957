// voiced: voice service for the AKARI pipeline. Owns the speech playback
// queue, the TTS backends, and the playback-synchronized head motion.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/akari-robotics/go-akari/internal/config"
	"github.com/akari-robotics/go-akari/internal/log"
	"github.com/akari-robotics/go-akari/pkg/audioio"
	"github.com/akari-robotics/go-akari/pkg/dashboard"
	"github.com/akari-robotics/go-akari/pkg/motion"
	"github.com/akari-robotics/go-akari/pkg/rpc"
	"github.com/akari-robotics/go-akari/pkg/speech"
	"github.com/akari-robotics/go-akari/pkg/tts"
)

var (
	addr     = flag.String("addr", "", "listen address (host:port)")
	backends = flag.String("tts", "voicevox", "comma-separated TTS backends in fallback order (voicevox, aivis, stylebertvits)")
	debug    = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	config.Load()
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.Daemon("voiced")

	listen := *addr
	if listen == "" {
		listen = config.VoiceAddr()
	}

	var (
		providers     []tts.Provider
		serverOpts    []rpc.VoiceServerOption
		voicevox      *tts.VoiceVox
		aivis         *tts.Aivis
		styleBertVits *tts.StyleBertVits
	)
	for _, name := range strings.Split(*backends, ",") {
		switch strings.TrimSpace(name) {
		case "voicevox":
			voicevox = tts.NewVoiceVox(config.VoiceVoxAddr(), logger)
			providers = append(providers, voicevox)
			serverOpts = append(serverOpts, rpc.WithVoiceVox(voicevox))
		case "aivis":
			aivis = tts.NewAivis(config.AivisAddr(), logger)
			providers = append(providers, aivis)
			serverOpts = append(serverOpts, rpc.WithAivis(aivis))
		case "stylebertvits":
			styleBertVits = tts.NewStyleBertVits(config.StyleBertVitsAddr(), logger)
			providers = append(providers, styleBertVits)
			serverOpts = append(serverOpts, rpc.WithStyleBertVits(styleBertVits))
		case "":
		default:
			logger.Warn("unknown TTS backend", "name", name)
		}
	}
	if len(providers) == 0 {
		logger.Error("no TTS backend configured")
		os.Exit(1)
	}

	provider := providers[0]
	if len(providers) > 1 {
		chain, err := tts.NewChain(logger, providers...)
		if err != nil {
			logger.Error("tts chain init failed", "error", err)
			os.Exit(1)
		}
		provider = chain
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := audioio.NewNullSink(audioio.DefaultConfig())
	engine := speech.NewEngine(provider, sink, speech.DefaultConfig(), logger)

	motions := motion.NewClient(config.MotionAddr(), logger)
	syncLoop := motion.NewSyncLoop(motions, logger)
	board := dashboard.New(logger)

	// Playback drives the head: the first sentence of a turn starts the
	// sync loop, amplitude steers it, and a finished turn stops it and
	// parks the head back at rest.
	engine.OnStart(func() {
		syncLoop.Enable()
		board.AddLog("speech", "turn playback started")
	})
	engine.OnLevel(syncLoop.UpdateDB)
	engine.OnFinish(func() {
		syncLoop.Disable()
		syncLoop.ResetPose(context.Background())
		board.AddLog("speech", "turn finished")
	})

	engine.Start(ctx)
	defer engine.Stop()
	go syncLoop.Run(ctx)

	board.Start(ctx)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		var lastPlaying bool
		var lastQueue int
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			playing, queue := engine.IsPlaying(), engine.QueueLen()
			if playing == lastPlaying && queue == lastQueue {
				continue
			}
			lastPlaying, lastQueue = playing, queue
			board.SetPlayback(playing, queue)
		}
	}()

	serverOpts = append(serverOpts,
		rpc.WithHeadControl(syncLoop.Enable),
		rpc.WithTextObserver(board.AddReply),
	)
	app := rpc.NewApp("voiced")
	rpc.NewVoiceServer(engine, logger, serverOpts...).RegisterRoutes(app.Group("/api"))
	board.RegisterRoutes(app)

	go func() {
		logger.Info("voice service listening", "addr", listen,
			"backends", *backends)
		if err := app.Listen(listen); err != nil {
			logger.Error("server stopped", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	engine.Interrupt()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}
