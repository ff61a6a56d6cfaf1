package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/addrsync/internal/config"
	"github.com/stwalsh4118/addrsync/internal/database"
	"github.com/stwalsh4118/addrsync/internal/handlers"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/middleware"
	"github.com/stwalsh4118/addrsync/internal/registry"
	"github.com/stwalsh4118/addrsync/internal/repository"
	"github.com/stwalsh4118/addrsync/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting addrsync API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	ctx := context.Background()

	// GIS store pool
	gisDB, err := database.NewPostgresPool(ctx, cfg.GIS)
	if err != nil {
		log.Fatal("Failed to connect to GIS store", err, map[string]interface{}{
			"host": cfg.GIS.Host,
			"port": cfg.GIS.Port,
			"name": cfg.GIS.Name,
		})
	}
	defer gisDB.Close()

	// Registry pool
	registryDB, err := database.NewRegistryPool(ctx, cfg.Registry)
	if err != nil {
		log.Fatal("Failed to connect to registry", err, map[string]interface{}{
			"host": cfg.Registry.Host,
			"port": cfg.Registry.Port,
			"name": cfg.Registry.Name,
		})
	}
	defer registryDB.Close()

	log.Info("Database connections established", map[string]interface{}{
		"gis_host":      cfg.GIS.Host,
		"gis_database":  cfg.GIS.Name,
		"registry_host": cfg.Registry.Host,
	})

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(gisDB, registryDB, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository and service layers
	addressRepo := repository.NewAddressRepository(gisDB, cfg.Layers.AddressTable)
	joinRepo := repository.NewSpatialJoinRepository(gisDB, cfg.Layers.AddressTable)
	registryClient := registry.NewClient(registryDB, cfg.Registry)
	pipeline := services.NewSyncPipeline(addressRepo, joinRepo, registryClient, cfg.Layers, log)

	// Initialize handlers
	syncHandler := handlers.NewSyncHandler(pipeline, cfg.Layers.SRID)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/runs", syncHandler.Run)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
