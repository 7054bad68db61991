package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeAKstan/gradesync-sub000/internal/admin"
	"github.com/codeAKstan/gradesync-sub000/internal/auth"
	"github.com/codeAKstan/gradesync-sub000/internal/catalog"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway"
	"github.com/codeAKstan/gradesync-sub000/internal/ingest"
	"github.com/codeAKstan/gradesync-sub000/internal/registration"
	"github.com/codeAKstan/gradesync-sub000/internal/results"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

func main() {
	log.Println("INFO: Starting GradeSync server...")

	// 1. Load Config
	shared.LoadEnv("")
	cfg, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load config: %v", err)
	}
	if err := shared.ValidateAppConfig(cfg); err != nil {
		log.Fatalf("FATAL: Invalid config: %v", err)
	}
	if shared.IsDevelopment(cfg) {
		log.Printf("INFO: Running in development mode (db=%s)", cfg.MongoDB.Database)
	}

	// 2. Connect MongoDB
	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	if err := shared.EnsureIndexes(context.Background(), db); err != nil {
		log.Fatalf("FATAL: Failed to ensure indexes: %v", err)
	}

	// 3. Wire Services
	aggregator := results.NewAggregator(db)
	services := &gateway.Services{
		Auth:          auth.NewService(db, cfg),
		Registrations: registration.NewService(db),
		Ingest:        ingest.NewService(db, cfg.Grading),
		Catalog:       catalog.NewService(db),
		Admin:         admin.NewService(db, cfg),
		Reader:        results.NewReader(db),
		Approver:      results.NewApprover(client, db, aggregator),
	}

	// 4. Setup Routes and Server
	router := gateway.SetupRoutes(services, cfg.CORS)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Server listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Forced shutdown: %v", err)
	}

	log.Println("INFO: Server stopped.")
}
