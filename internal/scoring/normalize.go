package scoring

import "math"

// Every metric this engine normalizes (waiting_queue, cache_usage,
// running_req) is "smaller is better": fewer queued requests, less
// occupied cache, fewer in-flight requests are all preferable. Each
// primitive below returns "goodness" directly (bigger = better, in
// [0,1]) with the inversion folded in, so composition sums goodness
// terms without a second inversion step.

// adaptiveK is the fixed slope used by the adaptive-distribution primitive.
const adaptiveK = 1.0

// logWindowLo, logWindowHi bound the log2(ratio) input window that the
// precise-log primitive clamps and rescales from. The window is a
// calibration knob; tests pin this choice.
const (
	logWindowLo = -2.0
	logWindowHi = 2.0
)

// minMaxGoodness is the min-max primitive:
// (max - x_i) / max(ε, max - min). For a smaller-is-better metric this is
// already goodness: 1 when x_i is the minimum, 0 when it is the maximum.
func minMaxGoodness(s crossMemberStats, x float64) float64 {
	denom := math.Max(epsilon, s.max-s.min)
	return clamp01((s.max - x) / denom)
}

// noneGoodness treats a metric as already expressed on [0,1] (e.g. cache
// usage is a fraction by construction) and uses it directly as a badness
// value, inverted to goodness. Used by the "none"-normalized legs of
// s1, s1_ratio, s1_precise, s2.
func noneGoodness(x float64) float64 {
	return 1 - clamp01(x)
}

// preciseLogGoodness implements the "precise logarithmic normalization to
// [lo, hi]" primitive: ratio_i = (x+δ)/(mean+δ), r = log2(ratio) clamped to
// the documented [-2,+2] window, linearly rescaled into [lo, hi], then
// inverted (1 - v) because the metric is smaller-is-better.
func preciseLogGoodness(s crossMemberStats, x, lo, hi float64) float64 {
	const delta = 1e-6
	ratio := (x + delta) / (s.mean + delta)
	r := math.Log2(math.Max(ratio, epsilon))
	r = clamp(r, logWindowLo, logWindowHi)
	v := lo + (r-logWindowLo)/(logWindowHi-logWindowLo)*(hi-lo)
	return 1 - v
}

// ratioWeightGoodness implements the two-node-only ratio-weight primitive:
// own share x_i/(x_i+x_j) of the combined value is the badness (a member
// carrying a larger share of the pair's combined load is worse off), so
// goodness is the complementary share.
func ratioWeightGoodness(x, other float64) float64 {
	sum := x + other
	if sum < epsilon {
		return 0.5
	}
	return clamp01(other / sum)
}

// adaptiveDistributionGoodness implements the adaptive-distribution
// primitive: z = (x-mean)/max(ε,stddev), mapped through tanh(k*z) and
// affine-shifted into [0,1] badness, then inverted. Degenerates to uniform
// 0.5 when stddev is 0 (neutrality, not "all 1.0").
func adaptiveDistributionGoodness(s crossMemberStats, x float64) float64 {
	if s.stddev == 0 {
		return 0.5
	}
	z := (x - s.mean) / s.stddev
	t := math.Tanh(adaptiveK * z)
	badness := (t + 1) / 2
	return clamp01(1 - badness)
}

// smoothedGoodness is min-max compressed into [0.2, 0.8].
func smoothedGoodness(s crossMemberStats, x float64) float64 {
	g := minMaxGoodness(s, x)
	return 0.2 + g*0.6
}

// squaredGoodness amplifies separation among worse-off members: it squares
// the min-max badness term (1-goodness) before re-inverting, so every
// interior member moves toward the best, gaps among the worst-off members
// widen, and the extremes stay at 1 and 0.
func squaredGoodness(s crossMemberStats, x float64) float64 {
	g := minMaxGoodness(s, x)
	badness := 1 - g
	return clamp01(1 - badness*badness)
}
