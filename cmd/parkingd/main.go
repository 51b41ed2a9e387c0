package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/api"
	"carpark-status-backend/internal/db"
	"carpark-status-backend/internal/ingest"
	"carpark-status-backend/internal/metrics"
	"carpark-status-backend/internal/notification"
	"carpark-status-backend/internal/provider"
	"carpark-status-backend/internal/status"
	"carpark-status-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "parkingd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Databases: the event store is ours, the product store belongs to the
	// refurbishment system.
	eventDB, err := db.InitEventDB(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize event database: %v", err)
	}
	productDB, err := db.InitProductDB(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize product database: %v", err)
	}
	logger.Println("databases initialized")

	appStore := store.NewGormStore(eventDB)
	resolver := status.NewResolver(productDB)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.Ingest.Timezone)
	if err != nil {
		logger.Fatalf("invalid timezone %q: %v", cfg.Ingest.Timezone, err)
	}
	client := provider.NewClient(&cfg.Provider, loc)

	notifier := notification.NewWebhookNotifier(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutSecs)*time.Second)

	var webpushOptions *webpush.Options
	var pool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, eventDB, webpushOptions)
		pool.Start(ctx)
	} else {
		logger.Println("VAPID keys not configured; web push disabled")
	}

	var broadcaster ingest.Broadcaster
	if pool != nil {
		broadcaster = pool
	}
	job, err := ingest.NewJob(&cfg.Ingest, client, appStore, notifier, broadcaster)
	if err != nil {
		logger.Fatalf("failed to create ingestion job: %v", err)
	}
	go job.Run(ctx)

	router := api.NewRouter(&cfg.Server, appStore, resolver, job, webpushOptions, registry)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
