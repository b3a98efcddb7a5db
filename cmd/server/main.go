package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"connectnow/infrastructure/ws"
	"connectnow/repositories"
	"connectnow/runtime"
	"connectnow/runtime/workers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database cleanup included)
// executes before the process exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) - optional; the core runs memory-only without it
	var db *badger.DB
	if config.BadgerFilepath == "" {
		log.Warn("BADGER_FILEPATH not configured, message history will not persist")
	} else {
		var err error
		db, err = badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.ERROR))
		if err != nil {
			return fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
	}
	gateway := repositories.NewBadgerGateway(db, log, config.MessageRetention)

	// 3. Coordination core
	hub := ws.NewHub(log)
	registry := runtime.NewRegistry(log, gateway, config.ReplayWindow)
	presence := runtime.NewPresenceTracker(log, config.GracePeriod)
	typing := runtime.NewTypingAggregator(log, hub)
	messages := runtime.NewMessageLog(log, gateway, hub)
	engine := runtime.NewEngine(log, registry, presence, typing, messages, hub)
	handler := ws.NewHandler(log, hub, engine, config.SendBufferSize)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Supervised background work
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewReaperWorker(log, registry, config.ReapInterval, config.RoomIdleTimeout))
	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 6. HTTP server
	started := time.Now().UTC()
	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/health", healthHandler(log, gateway, started))

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	presence.StopAll()
	sup.Stop()
	<-supDone
	log.Info("Program stopped cleanly")

	return nil
}

// healthHandler reports liveness plus durable-store reachability, for
// deployment monitoring.
func healthHandler(log *slog.Logger, gateway repositories.BadgerGateway, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := "disconnected"
		if gateway.Available() {
			store = "connected"
		}
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(started).Seconds(),
			"store":     store,
		})
		if err != nil {
			log.Debug("Health response not written", "error", err)
		}
	}
}
