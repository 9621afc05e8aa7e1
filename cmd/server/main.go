package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/katastar/katastar/internal/config"
	"github.com/katastar/katastar/internal/logger"
	"github.com/katastar/katastar/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting katastar fixture server", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"data_dir":    cfg.Data.Dir,
	})

	// Load the fixture datasets
	store, err := server.LoadFixtures(cfg.Data.Dir)
	if err != nil {
		log.Fatal("Failed to load fixtures", err, map[string]interface{}{
			"data_dir": cfg.Data.Dir,
		})
	}

	offices, municipalities, parcelSets, lrUnits := store.Counts()
	log.Info("Fixtures loaded", map[string]interface{}{
		"offices":        offices,
		"municipalities": municipalities,
		"parcel_sets":    parcelSets,
		"lr_units":       lrUnits,
	})

	router := server.NewRouter(cfg, log, store)

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
