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

	"rankingsengine/internal/api"
	"rankingsengine/internal/cache"
	"rankingsengine/internal/config"
	"rankingsengine/internal/engine"
	"rankingsengine/internal/logging"
	"rankingsengine/internal/services"
	"rankingsengine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	fsStore, err := store.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to firestore")
	}
	defer fsStore.Close()

	rebuildLock := cache.NewRebuildLock(cfg.Cache)

	controller := engine.NewController(fsStore, engine.ParamsFromConfig(cfg.Rankings), rebuildLock, cfg.Rankings)
	adminService := services.NewRankingsAdminService(fsStore, controller)

	router := api.SetupRoutes(cfg, logger, adminService)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("starting rankings engine admin API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}
	logger.Info("server exited")
}
