// Package solver wraps Gorgonia Solvers so that they can be described
// by name in configuration files and recreated from that description.
package solver

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

// Solver wraps a Gorgonia Solver with the Config that created it.
//
// Gorgonia Solvers are stateful (Adam keeps running moment estimates
// per learnable), so a Solver must not be shared between networks.
type Solver struct {
	G.Solver `json:"-" yaml:"-"`
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, fmt.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	solver := Solver{Type: t, Config: c}
	solver.Solver = solver.Config.Create()

	return &solver, nil
}

// New returns a Solver of the given type with default hyperparameters
// other than the step size. Type names are matched case-insensitively.
func New(t Type, stepSize float64, batchSize int) (*Solver, error) {
	if stepSize <= 0 {
		return nil, fmt.Errorf("new: step size must be positive\n\t"+
			"want(>0)\n\thave(%v)", stepSize)
	}

	switch strings.ToLower(string(t)) {
	case strings.ToLower(string(Adam)):
		return NewDefaultAdam(stepSize, batchSize)
	case strings.ToLower(string(Vanilla)):
		return NewVanilla(stepSize, batchSize, -1.0)
	case strings.ToLower(string(RMSProp)):
		return NewDefaultRMSProp(stepSize, batchSize)
	}
	return nil, fmt.Errorf("new: unknown solver type %q", t)
}

// Clone returns a new Solver with the same configuration but fresh
// internal state.
func (s *Solver) Clone() *Solver {
	return &Solver{Solver: s.Config.Create(), Type: s.Type, Config: s.Config}
}

// Config implements a Gorgonia Solver configuration and can be used to
// create Gorgonia Solvers they describe.
type Config interface {
	Create() G.Solver

	// ValidType returns whether a specific Solver type can be created
	// with the Config
	ValidType(Type) bool
}
