package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"poll-chat/api"
	"poll-chat/repositories"
	"poll-chat/runtime/workers"
	"poll-chat/services"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the store, the HTTP surface and the supervisor, and blocks
// until SIGINT or SIGTERM. Returning instead of exiting lets every defer
// close the store before the process ends.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := loadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Message store
	storeConfig := config.Store()
	if storeConfig.Driver == repositories.DriverBadger {
		db, err := badger.Open(buildBadgerOpts(config.BadgerFilepath, log, ctx))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		if log.Enabled(ctx, slog.LevelDebug) {
			endpoint := "/inspect"
			log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
			database.StartDebugServer(db, config.DebugPort, endpoint, MessageMapper)
		}
		storeConfig.Badger = db
	}

	repository, err := repositories.Open(ctx, storeConfig, log)
	if err != nil {
		return fmt.Errorf("message store failed to open: %w", err)
	}
	defer func() {
		if err := repository.Close(); err != nil {
			log.Warn("Message store close failed", "error", err)
		}
	}()

	// 4. HTTP surface and heartbeat under supervision
	service := services.NewChatService(log, repository)
	router := api.NewRouter(log, service, api.Options{MaxBodyBytes: config.MaxBodyBytes})
	server := workers.NewHTTPServerWorker(log, config.Address(), router, config.ShutdownTimeout)
	heartbeat := workers.NewHeartbeatWorker(log, repository, config.HeartbeatEvery)

	workers.NewSupervisor(log, config.RestartInterval).
		Add(server, heartbeat).
		Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

func buildBadgerOpts(path string, log *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(path)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// MessageMapper renders a stored message for the debug inspector.
func MessageMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	if !strings.HasPrefix(key, repositories.MessagePrefix) {
		row.Type = "META"
		return row
	}
	message, err := repositories.DecodeMessage(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	row.Type = "MESSAGE"
	row.Detail = fmt.Sprintf("#%d %s: %s", message.Seq, message.NickName, message.Text)
	return row
}
