// Package httpserver exposes batch evaluation synchronously over HTTP. It
// shares the driver with the pipe mode, so batching semantics are identical.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fast_mcm/config"
	"fast_mcm/mcm"
	"fast_mcm/utils"

	"github.com/gin-gonic/gin"
)

func Run() {
	logger := slog.Default()

	logger.Info("Starting MCM batch evaluation server...")

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config from environment variables:", "err", err)
		os.Exit(1)
	}
	logger.Info(fmt.Sprintf("DtmDataDir=%v, UmDataDir=%v", cfg.DtmDataDir, cfg.UmDataDir))

	router := gin.New()
	router.Use(utils.SlogBackedGinLogger(logger))
	router.Use(gin.Recovery())

	handlers := NewEvalHandlers(mcm.NewSurrogateModel(), cfg.DtmDataDir, cfg.UmDataDir)
	handlers.MapRoutes(router)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	go func() {
		logger.Info(fmt.Sprintf("MCM batch evaluation server listening on: %v ...", cfg.ListenAddress))

		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "err", err)
			os.Exit(1)
		}
	}()

	// Signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	logger.Info("Stopping HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "err", err)
		os.Exit(1)
	}

	logger.Info("Shutdown complete")
}
