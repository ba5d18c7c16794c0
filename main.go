package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/actiondist/policy"
	"github.com/samuelfneumann/actiondist/utils/matutils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	G "gorgonia.org/gorgonia"
)

var (
	cfg        *Config
	configFile string
	logger     zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "actiondist",
	Short: "Stochastic action distribution heads",
	Long: `actiondist builds a categorical or diagonal Gaussian action head over
a batch of features, then samples actions from it or evaluates the log
probabilities of given actions.

Settings may also be given in a config file (--config) or through
environment variables prefixed with ACTIONDIST_.`,
	PersistentPreRunE: loadConfig,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample one action per feature vector",
	RunE:  runSample,
}

var logProbCmd = &cobra.Command{
	Use:   "logprob",
	Short: "Compute log probabilities of actions and the mean entropy",
	RunE:  runLogProb,
}

func init() {
	cfg = Default()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (json, yaml, or toml)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Head settings
	flags.IntVar(&cfg.Features, "features", cfg.Features, "Number of input features")
	flags.StringVar(&cfg.Cardinality, "cardinality", cfg.Cardinality, "Action cardinality (Discrete or Continuous)")
	flags.IntVar(&cfg.Outputs, "outputs", cfg.Outputs, "Number of actions or action dimension")
	flags.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for weight initialization and sampling")

	// Inputs
	flags.IntVar(&cfg.Batch, "batch", cfg.Batch, "Number of feature vectors")
	flags.StringVar(&cfg.Input, "input", cfg.Input, "Comma separated features, row-major")

	sampleCmd.Flags().BoolVar(&cfg.Deterministic, "deterministic", cfg.Deterministic, "Select the mode of each distribution")
	logProbCmd.Flags().StringVar(&cfg.Actions, "actions", cfg.Actions, "Comma separated actions, row-major")

	rootCmd.AddCommand(sampleCmd, logProbCmd)

	// Bind flags to viper for config file and environment variable
	// support
	viper.BindPFlags(flags)
	viper.BindPFlags(sampleCmd.Flags())
	viper.BindPFlags(logProbCmd.Flags())
	viper.SetEnvPrefix("ACTIONDIST")
	viper.AutomaticEnv()
}

// loadConfig merges the config file and environment into cfg
func loadConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config: %v", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("could not decode config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	logger = cfg.Logger(cmd.ErrOrStderr())
	if configFile != "" {
		logger.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	}
	return nil
}

// newPolicy builds the configured head and wraps it in a policy
func newPolicy() (*policy.Policy, []float64, error) {
	features, err := parseFloats(cfg.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid input: %v", err)
	}

	head, err := cfg.Head(G.NewGraph())
	if err != nil {
		return nil, nil, fmt.Errorf("could not create head: %v", err)
	}
	logger.Debug().
		Str("cardinality", string(head.Cardinality())).
		Int("features", head.Features()).
		Int("outputs", head.Outputs()).
		Int("batch", cfg.Batch).
		Msg("Created head")

	p, err := policy.New(head, cfg.Batch)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create policy: %v", err)
	}
	return p, features, nil
}

func runSample(cmd *cobra.Command, args []string) error {
	p, features, err := newPolicy()
	if err != nil {
		return err
	}
	defer p.Close()

	actions, err := p.Sample(features, cfg.Deterministic)
	if err != nil {
		return err
	}
	logger.Info().Bool("deterministic", cfg.Deterministic).Msg("Sampled actions")
	fmt.Fprintln(cmd.OutOrStdout(), matutils.Format(actions))
	return nil
}

func runLogProb(cmd *cobra.Command, args []string) error {
	actions, err := parseFloats(cfg.Actions)
	if err != nil {
		return fmt.Errorf("invalid actions: %v", err)
	}

	p, features, err := newPolicy()
	if err != nil {
		return err
	}
	defer p.Close()

	logProbs, entropy, err := p.LogProbsAndEntropy(features, actions)
	if err != nil {
		return err
	}

	params, err := p.Params(features)
	if err != nil {
		return err
	}
	cols := len(actions) / cfg.Batch
	if a, err := matutils.Columns(actions, cols); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "actions:\n%v\n", matutils.Format(a))
	} else {
		logger.Warn().Err(err).Msg("Could not format actions")
	}
	for i, param := range params {
		fmt.Fprintf(cmd.OutOrStdout(), "params[%d]:\n%v\n", i,
			matutils.Format(param))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "log probabilities:\n%v\n",
		matutils.Format(logProbs))
	fmt.Fprintf(cmd.OutOrStdout(), "entropy: %v\n", entropy)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
