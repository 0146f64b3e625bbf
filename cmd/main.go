package main

import (
	"chat-relay/auth"
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdown of the HTTP server and sessions.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := observability.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := repositories.NewMessageIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	if err := os.MkdirAll(config.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("uploads directory: %w", err)
	}

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Core wiring
	monitoring := observability.NewMonitoring()
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)

	registry := runtime.NewRegistry()
	presence := runtime.NewPresence()
	router := runtime.NewRouter(log, registry, presence, messageRepository, index, monitoring)

	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	verifier := auth.NewVerifier(tokens)
	authService := services.NewAuthService(userRepository, tokens)

	// 5. HTTP surface
	wsServer := ws.NewServer(ctx, log, verifier, router, config.ConnectionBufferSize)
	authHandler := httpapi.NewAuthHandler(authService, log)
	uploadHandler := httpapi.NewUploadHandler(config.UploadsDir, log)
	searchHandler := httpapi.NewSearchHandler(index, log)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/upload", uploadHandler.Upload)
	mux.HandleFunc("GET /api/search", searchHandler.Search)
	mux.HandleFunc("GET /debug/stats", monitoring.Handler())
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/",
		http.FileServer(http.Dir(config.UploadsDir))))
	mux.HandleFunc("/ws", wsServer.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: mux,
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 7. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown timed out", "error", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
