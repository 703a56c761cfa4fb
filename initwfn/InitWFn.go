// Package initwfn wraps Gorgonia weight initializers so that they can
// be named in configuration files and recreated from those names.
package initwfn

import (
	"fmt"
	"strings"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
)

// InitWFn wraps a Gorgonia InitWFn together with the configuration
// that created it.
type InitWFn struct {
	initWFn G.InitWFn
	Config
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

func newInitWFn(c Config) (*InitWFn, error) {
	if c == nil {
		return nil, fmt.Errorf("newInitWFn: nil config")
	}
	return &InitWFn{initWFn: c.Create(), Config: c}, nil
}

// New returns the InitWFn of the given type. The meaning of param
// depends on the type: the gain for Glorot and He initializers, the
// half-width of the interval for Uniform, and the value for Constant.
// Type names are matched case-insensitively.
func New(t Type, param float64) (*InitWFn, error) {
	switch strings.ToLower(string(t)) {
	case strings.ToLower(string(GlorotU)):
		return newInitWFn(GlorotUConfig{Gain: param})
	case strings.ToLower(string(GlorotN)):
		return newInitWFn(GlorotNConfig{Gain: param})
	case strings.ToLower(string(HeU)):
		return newInitWFn(HeUConfig{Gain: param})
	case strings.ToLower(string(HeN)):
		return newInitWFn(HeNConfig{Gain: param})
	case strings.ToLower(string(Uniform)):
		return newInitWFn(UniformConfig{Low: -param, High: param})
	case strings.ToLower(string(Zeroes)):
		return newInitWFn(ConstantConfig{Value: 0})
	case strings.ToLower(string(Constant)):
		return newInitWFn(ConstantConfig{Value: param})
	}
	return nil, fmt.Errorf("new: unknown weight initializer %q", t)
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type(), w.Config)
}
