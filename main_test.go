package main

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/samuelfneumann/actiondist/distribution"
	"github.com/samuelfneumann/actiondist/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
)

func TestParseFloats(t *testing.T) {
	values, err := parseFloats(" 1, -2.5,3e-1 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2.5, 0.3}, values)

	_, err = parseFloats("")
	assert.Error(t, err)
	_, err = parseFloats("1,a")
	assert.Error(t, err)
}

func TestConfigHead(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	head, err := c.Head(G.NewGraph())
	require.NoError(t, err)
	assert.IsType(t, &distribution.Categorical{}, head)
	assert.Equal(t, c.Outputs, head.Outputs())

	c.Cardinality = string(spec.Continuous)
	c.Outputs = 2
	head, err = c.Head(G.NewGraph())
	require.NoError(t, err)
	assert.IsType(t, &distribution.DiagGaussian{}, head)

	c.Cardinality = "Hybrid"
	assert.Error(t, c.Validate())

	c = Default()
	c.Batch = 0
	assert.Error(t, c.Validate())
}

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	rootCmd.SetArgs([]string{
		"sample",
		"--features", "2",
		"--cardinality", "Discrete",
		"--outputs", "3",
		"--batch", "2",
		"--input", "1,0,0,1",
		"--deterministic",
	})
	require.NoError(t, rootCmd.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)

	out.Reset()
	rootCmd.SetArgs([]string{
		"logprob",
		"--features", "2",
		"--cardinality", "Continuous",
		"--outputs", "2",
		"--batch", "1",
		"--input", "1,-1",
		"--actions", "0.5,0.5",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "log probabilities")
	assert.Contains(t, out.String(), "entropy")

	out.Reset()
	rootCmd.SetArgs([]string{
		"logprob",
		"--features", "2",
		"--cardinality", "Discrete",
		"--outputs", "3",
		"--batch", "1",
		"--input", "1,-1",
		"--actions", "5",
	})
	assert.Error(t, rootCmd.Execute())
}

func TestConfigLogger(t *testing.T) {
	var buf bytes.Buffer
	c := Default()
	c.LogLevel = "warn"
	require.NoError(t, c.Validate())

	logger := c.Logger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"level":"warn"`)

	c.LogLevel = "loud"
	assert.Error(t, c.Validate())
}

func TestConfigActionSpec(t *testing.T) {
	c := Default()
	c.Outputs = 4
	env, err := c.ActionSpec()
	require.NoError(t, err)
	assert.Equal(t, spec.Action, env.Type)
	assert.Equal(t, spec.Discrete, env.Cardinality)
	assert.Equal(t, 1, env.Shape.Len())
	assert.Equal(t, 3.0, env.UpperBound.AtVec(0))

	space, err := c.ActionSpace()
	require.NoError(t, err)
	assert.Equal(t, spec.DiscreteSpace{N: 4}, space)

	c.Cardinality = string(spec.Continuous)
	c.Outputs = 3
	env, err = c.ActionSpec()
	require.NoError(t, err)
	assert.Equal(t, 3, env.Shape.Len())
	assert.True(t, math.IsInf(env.LowerBound.AtVec(2), -1))

	space, err = c.ActionSpace()
	require.NoError(t, err)
	assert.Equal(t, spec.ContinuousSpace{Dim: 3}, space)

	c.Outputs = 0
	_, err = c.ActionSpace()
	assert.Error(t, err)

	c.Cardinality = "Hybrid"
	_, err = c.ActionSpec()
	assert.True(t, errors.Is(err, spec.ErrUnsupportedActionSpace))
}
