package pfsm

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config selects the observability strategy at startup.
type Config struct {
	// Tracing enables transition records.
	Tracing bool `env:"PFSM_STATE_TRACING" envDefault:"false"`
	// TraceLevel is the slog level of transition records.
	TraceLevel string `env:"PFSM_TRACE_LEVEL" envDefault:"DEBUG"`
	// TraceBuffer, when positive, delivers records asynchronously through a
	// buffer of this size.
	TraceBuffer int `env:"PFSM_TRACE_BUFFER" envDefault:"0"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("pfsm: parse config: %w", err)
	}

	if cfg.TraceBuffer < 0 {
		return Config{}, fmt.Errorf("pfsm: PFSM_TRACE_BUFFER must not be negative, got %d", cfg.TraceBuffer)
	}

	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// MustLoadConfig is like LoadConfig but panics on an invalid environment.
// Generated machines call it while the program initializes.
func MustLoadConfig() Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	return cfg
}

// Level parses TraceLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.TraceLevel)); err != nil {
		return 0, fmt.Errorf("pfsm: invalid trace level %q: %w", c.TraceLevel, err)
	}

	return level, nil
}
