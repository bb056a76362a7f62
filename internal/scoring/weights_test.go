package scoring

import (
	"math"
	"testing"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

func TestCVAdaptiveWeightFallsBackToBaseOnZeroSpread(t *testing.T) {
	q := computeStats([]float64{4, 4, 4})
	c := computeStats([]float64{0.5, 0.5, 0.5})
	w := pool.Weights{WA: 0.7, WB: 0.3}

	ew := cvAdaptiveWeight(w, q, c, nil)
	if math.Abs(ew.WA-0.7) > 1e-9 || math.Abs(ew.WB-0.3) > 1e-9 {
		t.Errorf("expected base weights when all CVs are 0, got WA=%v WB=%v", ew.WA, ew.WB)
	}
}

func TestCVAdaptiveWeightFavorsHighSpreadMetric(t *testing.T) {
	q := computeStats([]float64{0, 50, 100}) // large between-node spread
	c := computeStats([]float64{0.5, 0.5, 0.5})
	w := pool.Weights{WA: 0.5, WB: 0.5}

	ew := cvAdaptiveWeight(w, q, c, nil)
	if ew.WA <= ew.WB {
		t.Errorf("expected the high-spread metric to gain weight: WA=%v WB=%v", ew.WA, ew.WB)
	}
	if math.Abs(ew.WA+ew.WB-1) > 1e-9 {
		t.Errorf("expected blended weights to renormalize to 1, got sum %v", ew.WA+ew.WB)
	}
}

func TestCVAdaptiveWeightThreeMetricSumsToOne(t *testing.T) {
	q := computeStats([]float64{0, 10})
	c := computeStats([]float64{0.1, 0.9})
	r := computeStats([]float64{2, 6})
	w := pool.Weights{WA: 0.4, WB: 0.3, WG: 0.3}

	ew := cvAdaptiveWeight(w, q, c, &r)
	sum := ew.WA + ew.WB + ew.WG
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("expected three-metric weights to sum to 1, got %v", sum)
	}
}

func TestWaitingProgressiveWeightEndpoints(t *testing.T) {
	w := pool.Weights{WA: 1, WB: 1, WG: 1, HasWG: true, TransitionPoint: 30, HasTransitionPt: true, Steepness: 1, HasSteepness: true}

	atZero := waitingProgressiveWeight(w, 0, true)
	if math.Abs(atZero.WA-0.2) > 1e-9 || math.Abs(atZero.WB-1.8) > 1e-9 || math.Abs(atZero.WG-1.4) > 1e-9 {
		t.Errorf("unexpected weights at zero pressure: %+v", atZero)
	}

	// As intensity approaches 1, the multipliers approach 2.5x, 0.3x, 0.6x.
	saturated := waitingProgressiveWeight(w, 1e9, true)
	if math.Abs(saturated.WA-2.5) > 1e-6 || math.Abs(saturated.WB-0.3) > 1e-6 || math.Abs(saturated.WG-0.6) > 1e-6 {
		t.Errorf("unexpected weights at saturated pressure: %+v", saturated)
	}
}

func TestResolvedWeightsAppliesDefaults(t *testing.T) {
	w := resolvedWeights(pool.Weights{WA: 0.5, WB: 0.5}, true)
	if w.WG != defaultWG {
		t.Errorf("expected default WG %v, got %v", defaultWG, w.WG)
	}
	if w.TransitionPoint != defaultTransitionPoint || w.Steepness != defaultSteepness {
		t.Errorf("expected default transition/steepness, got %v/%v", w.TransitionPoint, w.Steepness)
	}

	explicit := resolvedWeights(pool.Weights{WA: 0.5, WB: 0.5, WG: 0.2, HasWG: true}, true)
	if explicit.WG != 0.2 {
		t.Errorf("expected configured WG to survive resolution, got %v", explicit.WG)
	}
}
