// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Server configuration: defaults, YAML loading and validation.

package control

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/protocol"
)

// Config holds every tunable of the game server.
type Config struct {
	Port          string        `yaml:"port"`
	Capacity      int           `yaml:"capacity"`
	BlastRadius   float32       `yaml:"blast_radius"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`
	BufferSize    int           `yaml:"buffer_size"`
	RetryAttempts int           `yaml:"retry_attempts"`
	Backlog       int           `yaml:"backlog"`

	// AdminAddr enables the HTTP admin surface when non-empty.
	AdminAddr string `yaml:"admin_addr"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the stock arena settings. Port is left empty and
// must be supplied by the file or the command line.
func DefaultConfig() Config {
	return Config{
		Capacity:      20,
		BlastRadius:   0.25,
		TickInterval:  50 * time.Millisecond,
		PollTimeout:   500 * time.Microsecond,
		BufferSize:    1024,
		RetryAttempts: 3,
		Backlog:       5,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// The result is not validated; callers apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s: %w", field, fmt.Sprintf(format, args...), api.ErrInvalidArgument))
	}

	if c.Port == "" {
		bad("port", "required")
	}
	if c.Capacity < 1 || c.Capacity > protocol.MaxListed {
		bad("capacity", "must be in [1, %d], got %d", protocol.MaxListed, c.Capacity)
	}
	r := float64(c.BlastRadius)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		bad("blast_radius", "must be a finite non-negative number, got %v", c.BlastRadius)
	}
	if c.TickInterval <= 0 {
		bad("tick_interval", "must be positive")
	}
	if c.PollTimeout <= 0 {
		bad("poll_timeout", "must be positive")
	}
	if c.BufferSize < protocol.MaxClientFrame {
		bad("buffer_size", "must hold a %d byte frame, got %d", protocol.MaxClientFrame, c.BufferSize)
	}
	if c.RetryAttempts < 1 {
		bad("retry_attempts", "must be at least 1")
	}
	if c.Backlog < 1 {
		bad("backlog", "must be at least 1")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		bad("log_level", "unknown level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		bad("log_format", "unknown format %q", c.LogFormat)
	}
	return errors.Join(errs...)
}
