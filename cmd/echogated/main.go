package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/echogatelabs/echogate/pkg/echogate"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env-only works)")
	drainTimeout := flag.Duration("drain_timeout", 10*time.Second, "max time to wait for live sessions on shutdown")
	flag.Parse()

	cfg, err := echogate.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := echogate.NewEngine(echogate.EngineOptions{
		Config:       cfg,
		DrainTimeout: *drainTimeout,
	})
	if err != nil {
		slog.Error("engine_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := engine.Run(ctx); err != nil {
		slog.Error("engine_exit", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
