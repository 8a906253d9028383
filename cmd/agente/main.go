// Package main provides the entry point for the economy control-loop
// engine service: it wires a standalone Loopback adapter, the full
// Observer/Diagnoser/Simulator/Planner/Executor pipeline, and the HTTP/
// WebSocket transport, then serves until an interrupt or terminate signal
// arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atlas-desktop/agente/internal/economy/adapter"
	"github.com/atlas-desktop/agente/internal/economy/config"
	"github.com/atlas-desktop/agente/internal/economy/engine"
	"github.com/atlas-desktop/agente/internal/economy/types"
	"github.com/atlas-desktop/agente/internal/transport"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "directory to search for agente.yaml")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	pullInterval := flag.Duration("pull-interval", 0, "if > 0, also run a pull-mode tick loop against the last pushed state on this interval")
	flag.Parse()

	logger := setupLogger(*logLevel)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	applyEnvOverrides(cfg)

	logger.Info("starting agente",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("mode", cfg.Mode),
	)

	loop := adapter.New(logger)
	eng := engine.New(logger, *cfg, loop)
	eng.SetMode(types.EngineMode(cfg.Mode))

	server := transport.NewServer(logger, eng, loop, transport.Config{Host: cfg.Host, Port: cfg.Port})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *pullInterval > 0 {
		go runPullLoop(ctx, logger, eng, loop, *pullInterval)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("transport failed to bind or serve", zap.Error(err))
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		if err := server.Shutdown(); err != nil {
			logger.Error("error during graceful shutdown", zap.Error(err))
		}
	}

	logger.Info("agente stopped")
}

// runPullLoop periodically re-ticks the engine against whatever state the
// Loopback adapter last observed, exercising the Adapter's pull-mode
// GetState/PendingEvents path alongside the primary push-mode transport.
func runPullLoop(ctx context.Context, logger *zap.Logger, eng *engine.Engine, loop *adapter.Loopback, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !loop.HasState() {
				continue
			}
			state, err := loop.GetState(ctx)
			if err != nil {
				logger.Warn("pull-mode GetState failed", zap.Error(err))
				continue
			}
			events, err := loop.PendingEvents(ctx)
			if err != nil {
				logger.Warn("pull-mode PendingEvents failed", zap.Error(err))
				continue
			}
			if _, err := eng.ProcessTick(ctx, state, events, state.PersonaDistribution); err != nil {
				logger.Warn("pull-mode tick failed", zap.Error(err))
			}
		}
	}
}

// applyEnvOverrides re-applies the bit-exact AGENTE_PORT/AGENTE_HOST/
// AGENTE_MODE variables directly onto cfg after Load. viper's AGENTE_-prefixed
// binding already maps these three to the host/port/mode keys, so this
// repeats that step explicitly.
func applyEnvOverrides(cfg *config.Config) {
	if v := os.Getenv("AGENTE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("AGENTE_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("AGENTE_MODE"); v != "" {
		cfg.Mode = v
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
