package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aulabot/internal/aula"
	"aulabot/internal/config"
	"aulabot/internal/handlers"
	"aulabot/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if cfg.AulaUsername == "" || cfg.AulaPassword == "" {
		log.Fatal("AULA_USERNAME and AULA_PASSWORD must be set")
	}

	// The client logs in lazily on the first operation and re-authenticates
	// whenever the portal session expires.
	client := aula.New(cfg.AulaUsername, cfg.AulaPassword)

	digestService, err := service.NewDigestService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.DigestToEmail)
	if err != nil {
		log.Fatalf("Failed to initialize digest service: %v", err)
	}

	// Initialize handlers
	portalHandler := handlers.NewPortalHandler(client)

	// Setup routes
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", portalHandler.Health)
	mux.HandleFunc("GET /children", portalHandler.Children)
	mux.HandleFunc("POST /children/active", portalHandler.SetActiveChild)
	mux.HandleFunc("GET /overview", portalHandler.Overview)
	mux.HandleFunc("GET /messages", portalHandler.Messages)
	mux.HandleFunc("GET /calendar", portalHandler.Calendar)
	mux.HandleFunc("GET /gallery", portalHandler.Gallery)
	mux.HandleFunc("POST /api-call", portalHandler.CustomCall)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// The login ceremony alone can take a while, so write timeouts are
	// generous compared to a typical API server.
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background digest delivery
	if digestService.IsEnabled() {
		go runDigest(client, digestService, cfg.DigestInterval)
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}

// runDigest periodically mails a summary of unread messages
func runDigest(client *aula.Client, digestService *service.DigestService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		messages, err := client.FetchMessages(ctx)
		if err != nil {
			log.Printf("Error fetching messages for digest: %v", err)
			cancel()
			continue
		}
		if err := digestService.SendUnreadDigest(ctx, messages); err != nil {
			log.Printf("Error sending digest: %v", err)
		}
		cancel()
	}
}
