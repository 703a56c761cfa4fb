package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/logrusorgru/aurora"
	"github.com/samuelfneumann/matchradius/config"
	"github.com/samuelfneumann/matchradius/environment"
	"github.com/samuelfneumann/matchradius/environment/dispatch"
	"github.com/samuelfneumann/matchradius/experiment"
	"github.com/samuelfneumann/matchradius/experiment/checkpointer"
	"github.com/samuelfneumann/matchradius/experiment/tracker"
	"github.com/samuelfneumann/matchradius/monitor"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// Files written to the run directory
const (
	checkpointPrefix = "model"
	checkpointExt    = ".bin"
	finalCheckpoint  = "model_final.bin"
	rewardData       = "reward.bin"
	returnData       = "return.bin"
)

func trainCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train an agent in the dispatch simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt,
				syscall.SIGTERM)
			defer stop()

			if err := train(ctx, c, logger); err != nil {
				logger.Error(err, "training failed")
				return err
			}
			return nil
		},
	}
}

// train runs a full training run. Interrupting the run through ctx
// still saves the final checkpoint and all tracked data.
func train(ctx context.Context, c config.Config, logger logr.Logger) error {
	runDir := c.RunDir()
	if err := c.Write(filepath.Join(runDir, config.ResolvedFile)); err != nil {
		return err
	}
	logger.Info("starting run", "dir", runDir, "steps", c.Training.Steps)

	sim, err := dispatch.New(c.SimulationConfig(), c.Training.Seed)
	if err != nil {
		return err
	}

	writer, err := monitor.NewFileWriter(runDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error(err, "could not close monitor")
		}
	}()

	agent, err := newAgent(c, logger, writer)
	if err != nil {
		return err
	}
	defer agent.Close()

	replay, err := c.ReplayConfig().Create(c.Training.Seed + replaySeedOffset)
	if err != nil {
		return err
	}

	rewards := tracker.NewMeanReward(filepath.Join(runDir, rewardData))
	returns := tracker.NewReturn(filepath.Join(runDir, returnData))
	opts := []experiment.Option{
		experiment.WithEnder(environment.NewStepLimit(c.Simulation.TimeSlices)),
		experiment.WithTrackers(rewards, returns),
		experiment.WithLogger(logger.WithName("experiment")),
	}
	if c.Training.CheckpointInterval > 0 {
		check, err := checkpointer.NewNStep(c.Training.CheckpointInterval,
			agent, checkpointer.FileStepper(runDir, checkpointPrefix,
				checkpointExt))
		if err != nil {
			return err
		}
		opts = append(opts, experiment.WithCheckpointers(check))
	}
	if c.Training.ProgressBar {
		opts = append(opts, experiment.WithProgressBar(os.Stderr))
	}

	exp, err := experiment.NewOnline(sim, agent, replay, c.Training.Steps,
		opts...)
	if err != nil {
		return err
	}

	runErr := exp.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		logger.Info("run interrupted", "steps", exp.Steps())
		runErr = nil
	}

	if err := agent.SaveParameters(filepath.Join(runDir,
		finalCheckpoint)); err != nil {
		return err
	}
	if err := exp.Save(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	summarize(exp, agent.LossHistory(), rewards.Data(), runDir)
	return nil
}

// summarize prints a summary of a finished run
func summarize(exp *experiment.Online, losses, rewards []float64,
	runDir string) {
	fmt.Println(aurora.Green("Training finished"))
	fmt.Printf("  steps:    %v\n", aurora.Blue(exp.Steps()))
	fmt.Printf("  episodes: %v\n", aurora.Blue(exp.Episodes()))
	fmt.Printf("  updates:  %v\n", aurora.Blue(exp.Updates()))
	if len(rewards) > 0 {
		fmt.Printf("  reward:   %v\n",
			aurora.Blue(fmt.Sprintf("%.4f", stat.Mean(rewards, nil))))
	}
	if len(losses) > 0 {
		fmt.Printf("  loss:     %v\n",
			aurora.Blue(fmt.Sprintf("%.4f", losses[len(losses)-1])))
	}
	fmt.Printf("  run:      %v\n", aurora.Blue(runDir))
}
