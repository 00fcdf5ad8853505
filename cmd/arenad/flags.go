// File: cmd/arenad/flags.go
// Author: momentics <momentics@gmail.com>

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/hioload-arena/control"
)

type serveFlags struct {
	configPath    string
	port          string
	capacity      int
	blastRadius   float32
	tickInterval  time.Duration
	pollTimeout   time.Duration
	bufferSize    int
	retryAttempts int
	backlog       int
	adminAddr     string
	logLevel      string
	logFormat     string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	d := control.DefaultConfig()
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	fs.StringVarP(&f.port, "port", "p", "", "TCP port to listen on")
	fs.IntVar(&f.capacity, "capacity", d.Capacity, "maximum simultaneous players")
	fs.Float32Var(&f.blastRadius, "blast-radius", d.BlastRadius, "self-annihilation radius")
	fs.DurationVar(&f.tickInterval, "tick", d.TickInterval, "map update interval")
	fs.DurationVar(&f.pollTimeout, "poll-timeout", d.PollTimeout, "readiness wait timeout")
	fs.IntVar(&f.bufferSize, "buffer-size", d.BufferSize, "per-connection receive buffer in bytes")
	fs.IntVar(&f.retryAttempts, "retries", d.RetryAttempts, "write and accept attempts before giving up")
	fs.IntVar(&f.backlog, "backlog", d.Backlog, "listen backlog")
	fs.StringVar(&f.adminAddr, "admin", d.AdminAddr, "admin HTTP address (empty disables)")
	fs.StringVar(&f.logLevel, "log-level", d.LogLevel, "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", d.LogFormat, "text or json")
}

// apply overlays explicitly set flags and the positional port onto cfg.
func (f *serveFlags) apply(cmd *cobra.Command, args []string, cfg *control.Config) {
	fs := cmd.Flags()
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}
	set("port", func() { cfg.Port = f.port })
	set("capacity", func() { cfg.Capacity = f.capacity })
	set("blast-radius", func() { cfg.BlastRadius = f.blastRadius })
	set("tick", func() { cfg.TickInterval = f.tickInterval })
	set("poll-timeout", func() { cfg.PollTimeout = f.pollTimeout })
	set("buffer-size", func() { cfg.BufferSize = f.bufferSize })
	set("retries", func() { cfg.RetryAttempts = f.retryAttempts })
	set("backlog", func() { cfg.Backlog = f.backlog })
	set("admin", func() { cfg.AdminAddr = f.adminAddr })
	set("log-level", func() { cfg.LogLevel = f.logLevel })
	set("log-format", func() { cfg.LogFormat = f.logFormat })
	if len(args) == 1 {
		cfg.Port = args[0]
	}
}

// load builds the effective configuration.
func (f *serveFlags) load(cmd *cobra.Command, args []string) (control.Config, error) {
	cfg, err := control.Load(f.configPath)
	if err != nil {
		return cfg, err
	}
	f.apply(cmd, args, &cfg)
	return cfg, cfg.Validate()
}
