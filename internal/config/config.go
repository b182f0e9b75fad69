package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/copyleftdev/simplexopt/internal/optimization/penalty"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		WorkerCount int `env:"OPT_WORKER_COUNT" envDefault:"10"`

		Tolerance     float64 `env:"OPT_TOLERANCE" envDefault:"0.001"`
		MaxIterations int     `env:"OPT_MAX_ITERATIONS" envDefault:"1000"`
		EdgeLength    float64 `env:"OPT_EDGE_LENGTH" envDefault:"0.5"`

		InitialPenaltyWeight float64 `env:"OPT_INITIAL_PENALTY_WEIGHT" envDefault:"4"`
		MaxOuterIterations   int     `env:"OPT_MAX_OUTER_ITERATIONS" envDefault:"100"`
		ConvergenceTolerance float64 `env:"OPT_CONVERGENCE_TOLERANCE" envDefault:"0.001"`
		ShrinkPolicy         string  `env:"OPT_SHRINK_POLICY" envDefault:"always"`
	}
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the configuration from the given variables only.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		} else {
			cfg.Logging.Level = "info"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the optimization settings.
func (c *Config) Validate() error {
	o := c.Optimization
	var errs []error
	if o.WorkerCount < 1 {
		errs = append(errs, fmt.Errorf("OPT_WORKER_COUNT must be positive, got %d", o.WorkerCount))
	}
	if !(o.Tolerance > 0) {
		errs = append(errs, fmt.Errorf("OPT_TOLERANCE must be positive, got %v", o.Tolerance))
	}
	if o.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("OPT_MAX_ITERATIONS must be positive, got %d", o.MaxIterations))
	}
	if !(o.EdgeLength > 0) {
		errs = append(errs, fmt.Errorf("OPT_EDGE_LENGTH must be positive, got %v", o.EdgeLength))
	}
	if !(o.InitialPenaltyWeight > 0) {
		errs = append(errs, fmt.Errorf("OPT_INITIAL_PENALTY_WEIGHT must be positive, got %v", o.InitialPenaltyWeight))
	}
	if o.MaxOuterIterations < 1 {
		errs = append(errs, fmt.Errorf("OPT_MAX_OUTER_ITERATIONS must be positive, got %d", o.MaxOuterIterations))
	}
	if !(o.ConvergenceTolerance > 0) {
		errs = append(errs, fmt.Errorf("OPT_CONVERGENCE_TOLERANCE must be positive, got %v", o.ConvergenceTolerance))
	}
	if _, err := penalty.ParseShrinkPolicy(o.ShrinkPolicy); err != nil {
		errs = append(errs, fmt.Errorf("OPT_SHRINK_POLICY: %w", err))
	}
	return errors.Join(errs...)
}

// Policy returns the parsed shrink policy. Call Validate first.
func (c *Config) Policy() penalty.ShrinkPolicy {
	p, _ := penalty.ParseShrinkPolicy(c.Optimization.ShrinkPolicy)
	return p
}
