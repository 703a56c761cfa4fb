package experiment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/samuelfneumann/matchradius/agent"
	env "github.com/samuelfneumann/matchradius/environment"
	"github.com/samuelfneumann/matchradius/experiment/checkpointer"
	"github.com/samuelfneumann/matchradius/experiment/tracker"
	"github.com/samuelfneumann/matchradius/expreplay"
	ts "github.com/samuelfneumann/matchradius/timestep"
	"github.com/samuelfneumann/matchradius/utils/progressbar"
	"gonum.org/v1/gonum/floats"
)

// Online is an Experiment that trains an agent online. At each step
// every agent in the environment acts, the resulting transitions are
// added to an experience replay buffer, and the agent learns from a
// batch sampled from the buffer once the buffer allows it. No offline
// evaluation is performed.
type Online struct {
	env      env.Environment
	agent    agent.Agent
	replay   expreplay.ExperienceReplayer
	ender    env.Ender
	maxSteps int

	currentSteps int
	updates      int
	episodes     int

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer

	logger logr.Logger
	pbar   *progressbar.ProgressBar
}

// Option configures an Online experiment
type Option func(*Online)

// WithEnder sets the condition on which episodes end. By default an
// episode lasts until the step limit of the experiment is reached.
func WithEnder(e env.Ender) Option {
	return func(o *Online) {
		o.ender = e
	}
}

// WithTrackers registers Trackers with the experiment
func WithTrackers(t ...tracker.Tracker) Option {
	return func(o *Online) {
		o.trackers = append(o.trackers, t...)
	}
}

// WithCheckpointers registers Checkpointers with the experiment. Each
// is called with the number of learning steps taken after every
// learning step.
func WithCheckpointers(c ...checkpointer.Checkpointer) Option {
	return func(o *Online) {
		o.checkpointers = append(o.checkpointers, c...)
	}
}

// WithLogger sets the logger of the experiment
func WithLogger(l logr.Logger) Option {
	return func(o *Online) {
		o.logger = l
	}
}

// WithProgressBar draws a progress bar of the experiment to out
func WithProgressBar(out io.Writer) Option {
	return func(o *Online) {
		o.pbar = progressbar.NewProgressBar(out, 40, o.maxSteps,
			time.Second)
	}
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many environment steps the experiment is run for. If the agent
// reports its batch size, it must equal the batch size of replay.
func NewOnline(e env.Environment, a agent.Agent,
	replay expreplay.ExperienceReplayer, steps int,
	opts ...Option) (*Online, error) {
	if steps < 1 {
		return nil, fmt.Errorf("newOnline: step limit must be positive"+
			"\n\twant(>0)\n\thave(%v)", steps)
	}
	if b, ok := a.(interface{ BatchSize() int }); ok {
		if b.BatchSize() != replay.BatchSize() {
			return nil, fmt.Errorf("newOnline: replay batch size must "+
				"equal agent batch size\n\twant(%v)\n\thave(%v)",
				b.BatchSize(), replay.BatchSize())
		}
	}

	o := &Online{
		env:      e,
		agent:    a,
		replay:   replay,
		maxSteps: steps,
		logger:   logr.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Register registers a Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// Steps returns the number of environment steps taken so far
func (o *Online) Steps() int {
	return o.currentSteps
}

// Updates returns the number of learning steps taken so far
func (o *Online) Updates() int {
	return o.updates
}

// Episodes returns the number of episodes finished so far
func (o *Online) Episodes() int {
	return o.episodes
}

// RunEpisode runs a single episode of the experiment. It returns
// whether the step limit of the experiment has been reached.
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	states := o.env.Reset()
	episodeStep := 0
	var episodeReward float64

	for o.currentSteps < o.maxSteps {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		actions, err := o.agent.ChooseAction(states)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}

		rewards, next, err := o.env.Step(actions)
		if err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}

		batch := ts.Batch{
			States:     states,
			Actions:    actions,
			Rewards:    rewards,
			NextStates: next,
		}
		if err := o.replay.AddBatch(batch); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}

		if err := o.learn(); err != nil {
			return false, fmt.Errorf("runEpisode: %w", err)
		}

		episodeStep++
		last := o.ender != nil && o.ender.End(episodeStep)
		o.track(tracker.Step{
			Number:  o.currentSteps,
			Rewards: rewards,
			Last:    last,
		})
		if len(rewards) > 0 {
			episodeReward += floats.Sum(rewards) / float64(len(rewards))
		}

		o.currentSteps++
		if o.pbar != nil {
			o.pbar.Increment()
			o.pbar.SetStatus(fmt.Sprintf("ε: %.3f", o.agent.Epsilon()))
		}

		states = next
		if last {
			break
		}
	}

	o.episodes++
	o.logger.Info("episode finished", "episode", o.episodes,
		"steps", episodeStep, "return", episodeReward,
		"epsilon", o.agent.Epsilon(), "updates", o.updates)

	return o.currentSteps >= o.maxSteps, nil
}

// learn performs a single learning step if the replay buffer can be
// sampled, and then checkpoints
func (o *Online) learn() error {
	batch, err := o.replay.Sample()
	if expreplay.IsEmptyBuffer(err) || expreplay.IsInsufficientSamples(err) {
		return nil
	} else if err != nil {
		return err
	}

	if err := o.agent.Learn(batch); err != nil {
		return err
	}
	o.updates++

	for _, c := range o.checkpointers {
		if err := c.Checkpoint(o.updates); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return nil
}

// Run runs the entire experiment for all steps, or until ctx is
// cancelled, in which case the context error is returned
func (o *Online) Run(ctx context.Context) error {
	if o.pbar != nil {
		o.pbar.Display()
		defer o.pbar.Close()
	}

	for {
		ended, err := o.RunEpisode(ctx)
		if err != nil {
			return err
		}
		if ended {
			return nil
		}
	}
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	return nil
}

// track sends the current step to each Tracker
func (o *Online) track(step tracker.Step) {
	for _, t := range o.trackers {
		t.Track(step)
	}
}
