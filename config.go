package main

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/actiondist/distribution"
	"github.com/samuelfneumann/actiondist/spec"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// Config holds the command line configuration
type Config struct {
	// Head settings
	Features    int    `mapstructure:"features"`
	Cardinality string `mapstructure:"cardinality"`
	Outputs     int    `mapstructure:"outputs"`
	Seed        uint64 `mapstructure:"seed"`

	// Inputs, as comma separated values in row-major order
	Batch   int    `mapstructure:"batch"`
	Input   string `mapstructure:"input"`
	Actions string `mapstructure:"actions"`

	Deterministic bool `mapstructure:"deterministic"`

	LogLevel string `mapstructure:"log-level"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Features:    4,
		Cardinality: string(spec.Discrete),
		Outputs:     3,
		Seed:        0,
		Batch:       1,
		LogLevel:    zerolog.LevelInfoValue,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Features <= 0 {
		return fmt.Errorf("features must be positive")
	}
	if c.Outputs <= 0 {
		return fmt.Errorf("outputs must be positive")
	}
	if c.Batch <= 0 {
		return fmt.Errorf("batch must be positive")
	}
	if _, err := c.ActionSpace(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Logger returns a logger writing to w at the configured level
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ActionSpec returns the action specification of an environment whose
// actions the configured head selects. Discrete actions are the
// integers 0, 1, ..., Outputs-1. Continuous actions are unbounded
// vectors of length Outputs.
func (c *Config) ActionSpec() (spec.Environment, error) {
	var shape, lowerBound, upperBound *mat.VecDense

	switch cardinality := spec.Cardinality(c.Cardinality); cardinality {
	case spec.Discrete:
		shape = mat.NewVecDense(1, nil)
		lowerBound = mat.NewVecDense(1, []float64{0})
		upperBound = mat.NewVecDense(1, []float64{float64(c.Outputs - 1)})

	case spec.Continuous:
		if c.Outputs <= 0 {
			return spec.Environment{}, fmt.Errorf("actionSpec: outputs "+
				"must be positive but got %v", c.Outputs)
		}
		shape = mat.NewVecDense(c.Outputs, nil)
		lowerBound = mat.NewVecDense(c.Outputs, nil)
		upperBound = mat.NewVecDense(c.Outputs, nil)
		for i := 0; i < c.Outputs; i++ {
			lowerBound.SetVec(i, math.Inf(-1))
			upperBound.SetVec(i, math.Inf(1))
		}

	default:
		return spec.Environment{}, fmt.Errorf("actionSpec: cardinality "+
			"%q: %w", cardinality, spec.ErrUnsupportedActionSpace)
	}

	return spec.NewEnvironment(shape, spec.Action, lowerBound, upperBound,
		spec.Cardinality(c.Cardinality))
}

// ActionSpace returns the action space described by the configuration
func (c *Config) ActionSpace() (spec.ActionSpace, error) {
	env, err := c.ActionSpec()
	if err != nil {
		return nil, err
	}
	return spec.NewActionSpace(env)
}

// Head adds the configured head to graph g
func (c *Config) Head(g *G.ExprGraph) (distribution.Head, error) {
	space, err := c.ActionSpace()
	if err != nil {
		return nil, err
	}
	spaceConfig, err := spec.ConfigOf(space)
	if err != nil {
		return nil, err
	}

	config := distribution.Config{
		Features:    c.Features,
		ActionSpace: spaceConfig,
		Seed:        c.Seed,
	}
	return config.Create(g)
}

// parseFloats parses comma separated floats
func parseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("parseFloats: no values")
	}

	fields := strings.Split(s, ",")
	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("parseFloats: %v", err)
		}
		values[i] = v
	}
	return values, nil
}
