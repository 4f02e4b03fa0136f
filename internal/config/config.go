package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"simpleboard/internal/engine"
)

const (
	ConfirmNone   = "none"
	ConfirmHTTP   = "http"
	ConfirmRandom = "random"
)

// Config holds all service configuration. Every field comes from the
// environment.
type Config struct {
	HTTPAddr    string   `env:"BOARD_HTTP_ADDR"    envDefault:"127.0.0.1:8080"`
	Environment string   `env:"BOARD_ENVIRONMENT"  envDefault:"development"`
	LogLevel    string   `env:"BOARD_LOG_LEVEL"    envDefault:"info"`
	CORSOrigins []string `env:"BOARD_CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	MovePolicy     engine.MovePolicy `env:"BOARD_MOVE_POLICY"      envDefault:"queue"`
	MaxQueuedMoves int               `env:"BOARD_MAX_QUEUED_MOVES" envDefault:"64"`
	EnqueueTimeout time.Duration     `env:"BOARD_ENQUEUE_TIMEOUT"  envDefault:"2s"`
	ConfirmTimeout time.Duration     `env:"BOARD_CONFIRM_TIMEOUT"  envDefault:"10s"`

	ConfirmMode       string        `env:"BOARD_CONFIRM_MODE"        envDefault:"none"`
	ConfirmURL        string        `env:"BOARD_CONFIRM_URL"`
	ConfirmAcceptRate float64       `env:"BOARD_CONFIRM_ACCEPT_RATE" envDefault:"0.5"`
	ConfirmDelay      time.Duration `env:"BOARD_CONFIRM_DELAY"       envDefault:"0s"`

	JournalPath          string        `env:"BOARD_JOURNAL_PATH"`
	JournalFlushInterval time.Duration `env:"BOARD_JOURNAL_FLUSH_INTERVAL" envDefault:"1s"`
	JournalBufferBytes   int           `env:"BOARD_JOURNAL_BUFFER_BYTES"   envDefault:"4194304"`

	DemoSeed int64 `env:"BOARD_DEMO_SEED" envDefault:"0"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.ConfirmMode {
	case ConfirmNone, ConfirmRandom:
	case ConfirmHTTP:
		if c.ConfirmURL == "" {
			errs = append(errs, errors.New("BOARD_CONFIRM_URL is required when BOARD_CONFIRM_MODE=http"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BOARD_CONFIRM_MODE %q", c.ConfirmMode))
	}
	if c.ConfirmAcceptRate < 0 || c.ConfirmAcceptRate > 1 {
		errs = append(errs, fmt.Errorf("BOARD_CONFIRM_ACCEPT_RATE must be within [0,1], got %v", c.ConfirmAcceptRate))
	}
	if c.MaxQueuedMoves <= 0 {
		errs = append(errs, fmt.Errorf("BOARD_MAX_QUEUED_MOVES must be positive, got %d", c.MaxQueuedMoves))
	}
	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// BoardCfg is the per-board worker configuration.
func (c Config) BoardCfg() engine.BoardCfg {
	return engine.BoardCfg{
		Policy:         c.MovePolicy,
		MaxQueuedMoves: c.MaxQueuedMoves,
		EnqueueTimeout: c.EnqueueTimeout,
		ConfirmTimeout: c.ConfirmTimeout,
	}
}

// JournalCfg describes the move journal. An empty Path disables it.
func (c Config) JournalCfg() engine.JournalCfg {
	return engine.JournalCfg{
		Path:          c.JournalPath,
		FlushInterval: c.JournalFlushInterval,
		BufferBytes:   c.JournalBufferBytes,
	}
}
