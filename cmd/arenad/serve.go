// File: cmd/arenad/serve.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/momentics/hioload-arena/control"
	"github.com/momentics/hioload-arena/internal/admin"
	"github.com/momentics/hioload-arena/internal/spectator"
	"github.com/momentics/hioload-arena/internal/transport"
	"github.com/momentics/hioload-arena/reactor"
	"github.com/momentics/hioload-arena/server"
)

func serve(cmd *cobra.Command, args []string, f *serveFlags) error {
	cfg, err := f.load(cmd, args)
	if err != nil {
		return err
	}

	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.LogLevel))
	log := setupLogger(os.Stdout, level, cfg.LogFormat)
	slog.SetDefault(log)

	store := control.NewConfigStore(cfg)
	store.OnReload(func(old, cur control.Config) {
		level.Set(parseLevel(cur.LogLevel))
		if old.LogLevel != cur.LogLevel {
			log.Info("log level changed", "from", old.LogLevel, "to", cur.LogLevel)
		}
		cur.LogLevel = cfg.LogLevel
		if cur != cfg {
			log.Warn("configuration changes other than log_level take effect after restart")
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := control.NewMetrics(reg)

	ln, err := transport.Listen(cfg.Port, cfg.Backlog)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	re, err := reactor.New()
	if err != nil {
		ln.Close()
		return err
	}

	hub := spectator.New(log)
	srv, err := server.New(cfg, ln, re,
		server.WithLogger(log),
		server.WithMetrics(metrics),
		server.WithFeed(hub.Feed()),
	)
	if err != nil {
		ln.Close()
		re.Close()
		return err
	}

	probes := control.NewDebugProbes()
	control.RegisterRuntimeProbes(probes)
	probes.RegisterProbe("config", configProbe(cfg, store))
	probes.RegisterProbe("spectators", func() any { return hub.Viewers() })

	var wg sync.WaitGroup
	if cfg.AdminAddr != "" {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			h := admin.NewRouter(admin.Options{
				Snapshot: srv.Snapshot,
				Probes:   probes,
				Gatherer: reg,
				Spectate: hub,
				Log:      log,
			})
			if err := admin.Serve(ctx, cfg.AdminAddr, h, log); err != nil {
				log.Error("admin server failed", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchReload(ctx, f.configPath, func() (control.Config, error) { return f.load(cmd, args) }, store, log)
	}()

	runErr := srv.Run(ctx)
	stop()
	wg.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// configProbe reports the configuration the server is running with next to
// the last one loaded. Only log_level from the loaded one is live.
func configProbe(running control.Config, store *control.ConfigStore) func() any {
	return func() any {
		loaded := store.Get()
		effective := running
		effective.LogLevel = loaded.LogLevel
		return map[string]any{
			"running":         effective,
			"loaded":          loaded,
			"restart_pending": effective != loaded,
		}
	}
}

// watchReload re-reads the configuration on SIGHUP.
func watchReload(ctx context.Context, path string, load func() (control.Config, error), store *control.ConfigStore, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := load()
			if err == nil {
				err = store.Set(cfg)
			}
			if err != nil {
				log.Warn("configuration reload rejected", "path", path, "error", err)
				continue
			}
			log.Info("configuration reloaded", "path", path)
		}
	}
}
