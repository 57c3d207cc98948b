package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/riskwatch/riskwatch/internal/config"
	"github.com/riskwatch/riskwatch/internal/logger"
	"github.com/riskwatch/riskwatch/internal/scheduler"
	"github.com/riskwatch/riskwatch/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default ~/.riskwatch/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to ensure directories: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	log := logger.ForComponent("daemon")

	lock := scheduler.NewLockFile(cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		if errors.Is(err, scheduler.ErrLockHeld) {
			fmt.Println("Daemon already running")
			os.Exit(0)
		}
		log.Error("failed to acquire lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	pid := scheduler.NewPIDFile(cfg.PIDPath())
	if err := pid.Write(); err != nil {
		log.Error("failed to write PID file", "error", err)
		os.Exit(1)
	}
	defer pid.Remove()

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(cfg, st)
	if err := sched.StartWatcher(ctx); err != nil {
		log.Warn("tamper watcher not started", "error", err)
	}

	srv := scheduler.NewServer(sched, cfg.SocketPath)
	if err := srv.Start(ctx); err != nil {
		log.Error("failed to start control socket", "error", err)
		os.Exit(1)
	}
	defer srv.Stop()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("signal received, shutting down")
		sched.Shutdown()
	}()

	log.Info("daemon started", "interval", cfg.Scheduler.Interval, "oneshot", cfg.Scheduler.Oneshot)
	if err := sched.Loop(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scheduler loop failed", "error", err)
		os.Exit(1)
	}
	log.Info("daemon stopped")
}
