// chatd: conversation service for the AKARI pipeline. Receives transcript
// reports, runs the two-phase response protocol against the language
// model, and streams reply sentences to the voice service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akari-robotics/go-akari/internal/config"
	"github.com/akari-robotics/go-akari/internal/log"
	"github.com/akari-robotics/go-akari/pkg/chat"
	"github.com/akari-robotics/go-akari/pkg/motion"
	"github.com/akari-robotics/go-akari/pkg/rpc"
)

var (
	addr  = flag.String("addr", "", "listen address (host:port)")
	model = flag.String("model", "", "language model name")
	debug = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	config.Load()
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.Daemon("chatd")

	listen := *addr
	if listen == "" {
		listen = config.ChatAddr()
	}
	modelName := *model
	if modelName == "" {
		modelName = config.GeminiModel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The conversation service is useless without a model backend.
	apiKey := config.GeminiAPIKey()
	if apiKey == "" {
		logger.Error("GEMINI_API_KEY is not set")
		os.Exit(1)
	}
	client, err := chat.NewGemini(ctx, apiKey, modelName, logger)
	if err != nil {
		logger.Error("chat backend init failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	voice := rpc.NewVoiceClient(config.VoiceAddr())
	motions := motion.NewClient(config.MotionAddr(), logger)
	orch := chat.NewOrchestrator(client, voice, motions, logger)

	app := rpc.NewApp("chatd")
	rpc.NewConversationServer(orch, logger).RegisterRoutes(app.Group("/api"))

	go func() {
		logger.Info("conversation service listening", "addr", listen)
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
	orch.Interrupt()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
}
