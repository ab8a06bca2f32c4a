package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docaudit/internal/api/routes"
	"docaudit/internal/config"
	"docaudit/internal/database"
	"docaudit/internal/realtime"
	"docaudit/internal/repositories/postgres"
	"docaudit/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting docaudit server")

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	minioClient, err := database.NewMinIOClient(&cfg.Storage)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	redisService := services.NewRedisService(redisClient)
	auditRepo := postgres.NewAuditRepository(db)

	eventService := services.NewEventService(&cfg.Kafka)
	if eventService == nil {
		slog.Warn("Kafka brokers not configured, audit events disabled")
	} else {
		defer eventService.Close()
	}

	aiService := services.NewAIService(&cfg.OpenAI)
	if aiService == nil {
		slog.Warn("OpenAI API key not configured, audits and chat disabled")
	}

	// Realtime layer: one registry shared by the handshake handler, the
	// broadcasting services and the liveness monitor.
	registry := realtime.NewRegistry()

	var streamer realtime.CompletionStreamer
	if aiService != nil {
		streamer = aiService
	}
	mux := realtime.NewMux(registry, streamer)

	monitor := realtime.NewMonitor(registry, realtime.DefaultProbeInterval)
	go monitor.Run()

	var summarizer services.Summarizer
	if aiService != nil {
		summarizer = aiService
	}
	var events services.AuditEvents
	if eventService != nil {
		events = eventService
	}
	auditService := services.NewAuditService(auditRepo, minioClient, summarizer, events, registry)

	router := routes.NewRouter(cfg, db, redisService, auditService, registry, mux)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	monitor.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
