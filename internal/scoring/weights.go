package scoring

import (
	"math"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// cvBlendAlpha is the fixed blend factor between configured base weights
// and CV-normalized weights.
const cvBlendAlpha = 0.5

// defaultWG, defaultTransitionPoint, defaultSteepness are applied when a
// pool's config omits the corresponding optional parameter. w_a and w_b
// are always supplied by a mode's config; w_g, transition_point and
// steepness are optional. defaultWG assumes equal weighting across the
// three metrics absent other guidance.
const (
	defaultWG              = 1.0 / 3.0
	defaultTransitionPoint = 30.0
	defaultSteepness       = 1.0
)

// resolvedWeights fills in documented defaults for any optional parameter
// the pool's config left unset.
func resolvedWeights(w pool.Weights, threeMetric bool) pool.Weights {
	out := w
	if threeMetric && !out.HasWG {
		out.WG = defaultWG
	}
	if !out.HasTransitionPt {
		out.TransitionPoint = defaultTransitionPoint
	}
	if !out.HasSteepness {
		out.Steepness = defaultSteepness
	}
	return out
}

// effectiveWeight is one metric's final, possibly-adapted weight.
type effectiveWeight struct {
	WA, WB, WG float64
}

// fixedWeight returns the configured weights unchanged (the "fixed" weight
// kind used by most algorithms).
func fixedWeight(w pool.Weights) effectiveWeight {
	return effectiveWeight{WA: w.WA, WB: w.WB, WG: w.WG}
}

// cvAdaptiveWeight blends base weights with CV-normalized weights, so the
// metric with the most between-node spread gets more weight. q, c, and
// optionally r are the cross-member stats already computed for each metric
// in play.
func cvAdaptiveWeight(w pool.Weights, q, c crossMemberStats, r *crossMemberStats) effectiveWeight {
	cvs := []float64{q.cv(), c.cv()}
	base := []float64{w.WA, w.WB}
	if r != nil {
		cvs = append(cvs, r.cv())
		base = append(base, w.WG)
	}

	total := 0.0
	for _, v := range cvs {
		total += v
	}

	var blended []float64
	if total < epsilon {
		// All CVs ~0: fall back to base weights, still renormalized to sum 1.
		blended = append([]float64(nil), base...)
	} else {
		blended = make([]float64, len(cvs))
		for i, cv := range cvs {
			cvNorm := cv / total
			blended[i] = cvBlendAlpha*base[i] + (1-cvBlendAlpha)*cvNorm
		}
	}

	sum := 0.0
	for _, v := range blended {
		sum += v
	}
	if sum < epsilon {
		sum = epsilon
	}
	for i := range blended {
		blended[i] /= sum
	}

	ew := effectiveWeight{WA: blended[0], WB: blended[1]}
	if r != nil {
		ew.WG = blended[2]
	}
	return ew
}

// waitingProgressiveWeight biases weights toward the waiting axis as queue
// pressure rises: weights are NOT renormalized, and scale with how far
// maxWaiting has pushed intensity toward 1.
func waitingProgressiveWeight(w pool.Weights, maxWaiting float64, threeMetric bool) effectiveWeight {
	intensity := math.Tanh(maxWaiting * w.Steepness / math.Max(epsilon, w.TransitionPoint))
	ew := effectiveWeight{
		WA: w.WA * (0.2 + 2.3*intensity),
		WB: w.WB * (1.8 - 1.5*intensity),
	}
	if threeMetric {
		ew.WG = w.WG * (1.4 - 0.8*intensity)
	}
	return ew
}
