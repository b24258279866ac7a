package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"xandpulse/config"
	"xandpulse/handlers"
	"xandpulse/middleware"
	"xandpulse/services"
	"xandpulse/utils"
)

func main() {
	// 1. Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Println("=== Configuration ===")
	log.Printf("Server: %s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Networks: %v", cfg.NetworkNames())
	log.Printf("Collector: every %v, batch size %d", cfg.CollectorIntervalDuration(), cfg.Collector.BatchSize)
	log.Printf("Redis: %s", cfg.Redis.Address)
	log.Printf("MongoDB: %s (retention %d days)", cfg.MongoDB.Database, cfg.MongoDB.RetentionDays)

	// 2. Storage
	mongoService, err := services.NewMongoDBService(cfg)
	if err != nil {
		log.Printf("⚠️  MongoDB connection failed: %v", err)
		log.Println("Snapshots will not be persisted; history queries return empty results")
	}

	cache := services.NewCacheService(cfg)
	cache.StartHealthCheck()
	log.Printf("✓ Cache Service started (mode: %s)", cache.GetCacheMode())

	geo := utils.NewGeoResolver(cfg.GeoIP.DBPath)

	// 3. Alerts
	discordBot, err := services.NewDiscordBotService(cfg.Discord.Token)
	if err != nil {
		log.Printf("⚠️  Discord bot initialization failed: %v", err)
		log.Println("Discord notifications will be disabled")
		discordBot, _ = services.NewDiscordBotService("")
	}

	webhook := services.NewWebhookNotifier(cfg.WebhookTimeoutDuration())
	alertService := services.NewAlertService(services.NewNotifierRouter(webhook, discordBot), cfg.Alerts.HistoryLimit)
	discordBot.BindSubscriptions(alertService)

	// 4. Collection pipeline
	prpc := services.NewPRPCClient(cfg)
	prober := services.NewProber(prpc, cfg.PRPCTimeoutDuration(), geo)
	runner := services.NewBatchRunner(prober, cfg.Collector.BatchSize)
	registry := services.NewRegistryFetcher(prpc, cfg.RegistryTimeoutDuration())
	collector := services.NewCollector(cfg.Networks, registry, runner, mongoService, cache, alertService)
	scheduler := services.NewScheduler(collector, cfg.CollectorIntervalDuration(), cfg.InitialDelayDuration())

	historyService := services.NewHistoryService(mongoService, cache, cfg.NetworkNames())

	// 5. Web Server
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.LoggerMiddleware())
	e.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	e.Use(echomw.Recover())

	h := handlers.NewHandler(cfg, cache, mongoService, scheduler)
	historyHandlers := handlers.NewHistoryHandlers(historyService, mongoService)
	alertHandlers := handlers.NewAlertHandlers(alertService)
	cacheHandlers := handlers.NewCacheHandlers(cache)

	registerRoutes(e, h, historyHandlers, alertHandlers, cacheHandlers)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Printf("🚀 Server running on http://%s", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("shutting down the server: %v", err)
		}
	}()

	scheduler.Start()
	log.Println("=== All Services Running ===")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⏳ Graceful shutdown initiated...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	log.Println("Stopping services...")
	scheduler.Stop()
	cache.Stop()
	if err := mongoService.Close(); err != nil {
		log.Printf("MongoDB close: %v", err)
	}
	discordBot.Close()
	geo.Close()
	log.Println("✓ Server exited cleanly")
}

func registerRoutes(e *echo.Echo, h *handlers.Handler, history *handlers.HistoryHandlers, alerts *handlers.AlertHandlers, cache *handlers.CacheHandlers) {
	// System
	e.GET("/health", h.GetHealth)

	api := e.Group("/api")

	api.GET("/nodes", h.GetNodes)
	api.GET("/versions", h.GetVersions)
	api.POST("/collect", h.TriggerCollection)

	// History endpoints
	hist := api.Group("/history")
	hist.GET("/network", history.GetNetworkHistory)
	hist.GET("/nodes/:address", history.GetNodeHistory)

	api.GET("/snapshots/latest", history.GetLatestSnapshots)
	api.GET("/stats/aggregate", history.GetAggregatedStats)
	api.GET("/storage/stats", history.GetStorageStats)

	// Alert endpoints
	al := api.Group("/alerts")
	al.POST("/subscriptions", alerts.Subscribe)
	al.DELETE("/subscriptions", alerts.Unsubscribe)
	al.GET("/subscriptions/:channel", alerts.ListSubscriptions)
	al.GET("/history", alerts.GetAlertHistory)

	// Cache admin
	api.GET("/cache/status", cache.GetCacheStatus)
	api.POST("/cache/clear", cache.ClearCache)
}
