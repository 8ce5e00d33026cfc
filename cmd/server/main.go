package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"crm-api/internal/api"
	"crm-api/internal/auth"
	"crm-api/internal/config"
	"crm-api/internal/db"
	"crm-api/internal/export"
	"crm-api/internal/middleware"
	"crm-api/internal/repository"
	"crm-api/internal/workflow"
)

func main() {
	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	location := time.Local
	if cfg.Server.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Server.Timezone)
		if err != nil {
			log.Fatalf("Invalid timezone %q: %v", cfg.Server.Timezone, err)
		}
		location = loc
	}

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, conn.Pool, cfg.Server.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Create repositories
	clientRepo := repository.NewClientRepository(conn.Pool)
	taskRepo := repository.NewTaskRepository(conn.Pool)
	noteRepo := repository.NewNoteRepository(conn.Pool)
	viewRepo := repository.NewSavedViewRepository(conn.Pool)
	workflowRepo := repository.NewWorkflowRepository(conn.Pool)
	userRepo := repository.NewUserRepository(conn.Pool)

	// Create services
	workflowSvc := workflow.NewService(workflowRepo, clientRepo, taskRepo,
		workflow.WithClock(time.Now, location))
	exportSvc := export.NewService(clientRepo, taskRepo)

	server := api.NewServer(clientRepo, taskRepo, noteRepo, viewRepo, workflowRepo, userRepo,
		workflowSvc, exportSvc, api.WithClock(time.Now, location))

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(
		middleware.LoggingMiddleware(
			auth.Middleware(server.Mux()),
		),
	)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting CRM API server on %s", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
