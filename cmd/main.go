package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"messaging-lab/internal"
	"messaging-lab/repositories"
	"messaging-lab/runtime"
	"messaging-lab/runtime/workers"
	"messaging-lab/services"
	"messaging-lab/sink"
	"messaging-lab/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the daemon lifecycle, and
// centralizes error reporting. This pattern is preferred over calling
// os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories & Services
	conversationRepository := repositories.NewConversationRepository(db, log)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	unreadRepository := repositories.NewUnreadRepository(db, log)
	searchRepository := repositories.NewSearchRepository(blugeWriter, log)

	blobs := storage.NewDiskBlobStore(config.BlobRootDir, config.BlobBaseURL, log)
	attachments := services.NewAttachmentService(blobs, log, config.MaxUploadBytes, config.AllowedKindList())

	// 4. Supervision & Orchestration
	supervisor := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(
		log, supervisor, registry,
		conversationRepository, messageRepository, unreadRepository,
		config.BufferSize, config.SinkTimeout, config.MetricInterval,
	)
	orchestrator.Add(sink.NewSearchSink(searchRepository, log))

	messaging := services.NewMessagingService(orchestrator, attachments, searchRepository, log)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Debug inspector, with full-text search backed by the facade
	internal.StartDebugServer(db, config.DebugPort, "/inspect", conversationMapper, nil, messaging.SearchMessages)
	log.Info("Debug inspector started", "port", config.DebugPort)

	// 7. Start the Engine and wait for stop
	errChan := make(chan error, 1)
	go func() {
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	orchestrator.Stop()
	log.Info("Program stopped cleanly")
	return nil
}

func conversationMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	var record struct {
		LastMessage   string `json:"lastMessage"`
		LastMessageAt string `json:"lastMessageAt"`
	}
	if err := json.Unmarshal(val, &record); err != nil {
		return row
	}
	if record.LastMessage != "" {
		row.Detail = record.LastMessage
		row.Timestamp = record.LastMessageAt
	}
	return row
}
