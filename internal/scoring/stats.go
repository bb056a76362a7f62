package scoring

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// epsilon guards every division that could otherwise hit zero.
const epsilon = 1e-9

// crossMemberStats holds the cross-member statistics for one metric, over
// exactly the members that reported a value for it.
type crossMemberStats struct {
	values []float64
	min    float64
	max    float64
	mean   float64
	stddev float64
}

// computeStats computes min/max/mean/population-stddev over xs. gonum's
// stat.PopStdDev (rather than the Bessel-corrected stat.StdDev) is used so a
// single-member candidate set yields 0, never NaN.
func computeStats(xs []float64) crossMemberStats {
	if len(xs) == 0 {
		return crossMemberStats{}
	}
	mean := stat.Mean(xs, nil)
	sd := stat.PopStdDev(xs, nil)
	if math.IsNaN(sd) {
		sd = 0
	}
	return crossMemberStats{
		values: xs,
		min:    floats.Min(xs),
		max:    floats.Max(xs),
		mean:   mean,
		stddev: sd,
	}
}

// cv returns the coefficient of variation stddev/max(ε,mean) for a metric.
func (s crossMemberStats) cv() float64 {
	return s.stddev / math.Max(epsilon, s.mean)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
