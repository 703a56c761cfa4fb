package monitor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBins is the number of bins histograms are computed with
const DefaultBins = 30

// Histogram summarizes the distribution of a set of values. Counts[i]
// holds the number of values in [Dividers[i], Dividers[i+1]).
type Histogram struct {
	Count    int
	Min      float64
	Max      float64
	Mean     float64
	Std      float64
	Dividers []float64
	Counts   []float64
}

// NewHistogram bins values into at most bins equally wide bins spanning
// the range of the values. If all values are equal, a single bin is
// used. Values that are NaN or infinite are not binned.
func NewHistogram(values []float64, bins int) Histogram {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	if len(x) == 0 {
		return Histogram{}
	}
	if bins < 1 {
		bins = 1
	}

	sort.Float64s(x)
	min, max := x[0], x[len(x)-1]

	if min == max {
		bins = 1
	}

	// stat.Histogram includes the lower divider and excludes the upper,
	// so the last divider is nudged above the maximum
	dividers := make([]float64, bins+1)
	floats.Span(dividers, min, max)
	dividers[bins] = math.Nextafter(max, math.Inf(1))

	counts := stat.Histogram(nil, dividers, x, nil)

	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}

	return Histogram{
		Count:    len(x),
		Min:      min,
		Max:      max,
		Mean:     mean,
		Std:      std,
		Dividers: dividers,
		Counts:   counts,
	}
}
