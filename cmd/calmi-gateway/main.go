// calmi-gateway serves the chat and music HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/calmihq/calmi/pkg/core/chat"
	"github.com/calmihq/calmi/pkg/gateway/config"
	"github.com/calmihq/calmi/pkg/gateway/handlers"
	"github.com/calmihq/calmi/pkg/gateway/server"
	"github.com/calmihq/calmi/pkg/gateway/store"
)

func main() {
	godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := chat.NewEngine(ctx, cfg.GeminiAPIKey, cfg.ChatModel, logger)
	if err != nil {
		logger.Error("chat engine", "error", err)
		os.Exit(1)
	}

	st := store.New(cfg.SessionTTL)
	h := handlers.New(st, engine, engine, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(cfg, h, logger).Handler(),
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.Addr, "model", engine.Model())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
