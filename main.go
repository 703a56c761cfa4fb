// Command matchradius trains a deep Q-network to choose the matching
// radius of drivers in a simulated ride-dispatch system and renders
// the learned policy.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/samuelfneumann/matchradius/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/matchradius/config"
	"github.com/samuelfneumann/matchradius/monitor"
	"github.com/spf13/cobra"
)

// Seed offsets of the components of a run, so that each draws from
// its own random stream
const (
	agentSeedOffset  = 10
	replaySeedOffset = 20
)

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "matchradius",
		Short:         "Learn the matching radius of a ride-dispatch system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to a YAML configuration file")

	root.AddCommand(trainCommand(&configPath), policyCommand(&configPath))
	return root
}

// newLogger returns a logger printing to stderr every message at or
// below verbosity
func newLogger(verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(os.Stderr, "%v: %v\n", prefix, args)
		} else {
			fmt.Fprintln(os.Stderr, args)
		}
	}, funcr.Options{Verbosity: verbosity})
}

// loadConfig loads the configuration at path and the logger it
// configures. Errors are logged before being returned.
func loadConfig(path string) (config.Config, logr.Logger, error) {
	c, err := config.Load(path)
	if err != nil {
		logger := newLogger(0)
		logger.Error(err, "could not load configuration", "path", path)
		return config.Config{}, logger, err
	}
	return c, newLogger(c.Log.Verbosity), nil
}

// newAgent constructs the agent of a run
func newAgent(c config.Config, logger logr.Logger,
	w monitor.Writer) (*deepq.DeepQ, error) {
	agentConfig, err := c.AgentConfig()
	if err != nil {
		return nil, err
	}
	return deepq.New(agentConfig, c.Training.Seed+agentSeedOffset,
		deepq.WithMonitor(w), deepq.WithLogger(logger.WithName("deepq")))
}
