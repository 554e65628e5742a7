package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vehicle-data-tools/internal/config"
	"vehicle-data-tools/internal/domain"
	"vehicle-data-tools/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	defer container.Close()

	ctx := context.Background()
	if container.SDKConfigured() {
		if err := container.SupabaseClient.Initialize(); err != nil {
			container.Logger.Warn("Supabase client unavailable, authenticated routes will reject requests", "error", err.Error())
		}
	}
	migrationService, err := container.MigrationService(ctx, config.ExecutorAuto)
	if err != nil {
		container.Logger.Error("Failed to wire migration service", err)
		os.Exit(1)
	}
	verificationService, err := container.VerificationService(ctx, config.ExecutorAuto)
	if err != nil {
		container.Logger.Error("Failed to wire verification service", err)
		os.Exit(1)
	}
	ledger, err := container.Ledger()
	if err != nil {
		container.Logger.Error("Failed to open run ledger", err)
		os.Exit(1)
	}

	// Handlers
	migrationHandler := handler.NewMigrationHandler(
		migrationService,
		verificationService,
		ledger,
		domain.VerifyOptions{Dir: container.Config.GetMigrationsDir()},
		container.Logger,
	)

	authMiddleware := handler.NewAuthMiddleware(
		container.AuthService(),
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		migrationHandler,
		authMiddleware.Middleware,
		container.Config.GetCORSOrigins(),
	)

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}

	container.Logger.Info("Server exited")
}
