// gated: barge-in gate for the AKARI pipeline. Watches voice playback and
// mutes microphone capture while the robot is speaking.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akari-robotics/go-akari/internal/config"
	"github.com/akari-robotics/go-akari/internal/log"
	"github.com/akari-robotics/go-akari/pkg/rpc"
)

var (
	interval = flag.Duration("interval", rpc.DefaultGateInterval, "playback poll interval")
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
	logger := log.Daemon("gated")

	voice := rpc.NewVoiceClient(config.VoiceAddr())
	speech := rpc.NewSpeechClient(config.SpeechAddr())
	gate := rpc.NewGate(voice, speech, *interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		cancel()
	}()

	if err := gate.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("gate stopped", "error", err)
		os.Exit(1)
	}

	// Leave capture enabled on the way out.
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), time.Second)
	defer restoreCancel()
	if err := speech.Toggle(restoreCtx, true); err != nil {
		logger.Warn("capture restore failed", "error", err)
	}
}
