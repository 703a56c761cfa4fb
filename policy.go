package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/logrusorgru/aurora"
	"github.com/samuelfneumann/matchradius/agent"
	"github.com/samuelfneumann/matchradius/config"
	"github.com/samuelfneumann/matchradius/monitor"
	ts "github.com/samuelfneumann/matchradius/timestep"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

func policyCommand(configPath *string) *cobra.Command {
	var checkpoint, out string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Render the greedy radius of a checkpoint in every state",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			radii, err := greedyPolicy(c, logger, checkpoint)
			if err != nil {
				logger.Error(err, "could not compute policy",
					"checkpoint", checkpoint)
				return err
			}

			if err := monitor.RenderPolicy(out, radii); err != nil {
				logger.Error(err, "could not render policy", "out", out)
				return err
			}

			fmt.Println(aurora.Green("Policy map written to"), out)
			for t, row := range radii {
				fmt.Printf("  slice %2d: mean radius %v\n", t,
					aurora.Blue(fmt.Sprintf("%.2f", stat.Mean(row, nil))))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&checkpoint, "checkpoint", "",
		"parameter file saved by train")
	cmd.Flags().StringVar(&out, "out", "policy.png", "PNG file to write")
	cmd.MarkFlagRequired("checkpoint")

	return cmd
}

// greedyPolicy returns the greedy radius of the agent saved in
// checkpoint at every time slice (rows) and grid cell (columns) of the
// configured simulation
func greedyPolicy(c config.Config, logger logr.Logger,
	checkpoint string) ([][]float64, error) {
	dqn, err := newAgent(c, logger, monitor.Discard)
	if err != nil {
		return nil, err
	}
	defer dqn.Close()

	if err := dqn.LoadParameters(checkpoint); err != nil {
		return nil, err
	}

	sim := c.SimulationConfig()
	return policyMap(dqn, sim.TimeSlices, sim.NumCells(),
		dqn.ActionSpace())
}

// policyMap returns the radius in actionSpace that p selects greedily
// in each of cells grid cells at each of timeSlices time slices
func policyMap(p agent.GreedyPolicy, timeSlices, cells int,
	actionSpace []float64) ([][]float64, error) {
	radii := make([][]float64, timeSlices)

	states := make([]ts.State, cells)
	for t := range radii {
		for g := range states {
			states[g] = ts.NewState(t, g)
		}

		actions, err := p.Greedy(states)
		if err != nil {
			return nil, err
		}
		if len(actions) != cells {
			return nil, fmt.Errorf("policy map: want(%v) actions have(%v)",
				cells, len(actions))
		}

		radii[t] = make([]float64, len(actions))
		for g, a := range actions {
			if a < 0 || a >= len(actionSpace) {
				return nil, fmt.Errorf("policy map: action %v out of range "+
					"[0, %v)", a, len(actionSpace))
			}
			radii[t][g] = actionSpace[a]
		}
	}
	return radii, nil
}
