package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"pokedex-chat/infrastructure/server"
	"pokedex-chat/infrastructure/storage"
	"pokedex-chat/infrastructure/ws"
	"pokedex-chat/observability"
	"pokedex-chat/runtime"
	"pokedex-chat/runtime/workers"
	"pokedex-chat/services"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run keeps every defer (Badger first among them) on the exit path.
func run() error {
	// 1. Configuration & Logger
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB), closed last
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Broadcast pipeline
	metrics := observability.NewMetrics()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	messageRepository := storage.NewMessageRepository(db, log, config.LimitMessages)

	orchestrator := runtime.NewOrchestrator(log, sup, registry, messageRepository, metrics, runtime.Config{
		BufferSize:       config.BufferSize,
		SinkTimeout:      config.SinkTimeout,
		IngestionTimeout: config.IngestionTimeout,
		MetricInterval:   config.MetricInterval,
		EchoToSender:     config.EchoToSender,
	})
	chatService := services.NewChatService(orchestrator, metrics)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		if err := orchestrator.Start(ctx); err != nil {
			log.Error("Orchestrator stopped", "error", err)
		}
	}()

	// 5. HTTP / WebSocket server
	chatServer := server.NewChatServer(log, chatService, metrics, server.Config{
		ReadBufferSize:  int(config.MaxFrameSize),
		WriteBufferSize: int(config.MaxFrameSize),
		MaxLabelLength:  config.MaxLabelLength,
		Session: ws.Options{
			OutboxSize:   config.ConnectionBufferSize,
			WriteTimeout: config.WriteTimeout,
			PongWait:     config.PongWait,
			MaxFrameSize: config.MaxFrameSize,
		},
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv := &http.Server{
		Addr:    address,
		Handler: chatServer.Routes(),
		// Sessions inherit ctx and close on shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting chat server", "address", address, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		stop()
		chatServer.Wait()
		orchestrator.Stop()
		<-orchestratorDone
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", "error", err)
	}
	chatServer.Wait()
	orchestrator.Stop()
	<-orchestratorDone
	log.Info("Program stopped cleanly")

	return nil
}
