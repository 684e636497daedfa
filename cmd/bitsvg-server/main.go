package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/esimov/bitsvg"
	"github.com/esimov/bitsvg/config"
	"github.com/esimov/bitsvg/server"
	"github.com/esimov/bitsvg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	flag.Parse()

	// Until the configured logger exists, configuration warnings go to a production logger.
	if boot, err := utils.NewLogger("release"); err == nil {
		bitsvg.SetLogger(boot)
	}
	cfg := config.New(*configPath)

	logger, err := utils.NewLogger(cfg.Server.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	bitsvg.SetLogger(logger)

	logger.Info("starting bitsvg server",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("port", cfg.Server.Port),
	)

	proc, err := bitsvg.NewProcessor(*cfg)
	if err != nil {
		logger.Fatal("failed to create the processor", zap.Error(err))
	}
	defer proc.Close()

	gin.SetMode(cfg.Server.Mode)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: server.NewRouter(proc, cfg.Server, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()
	<-ctx.Done()

	logger.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
