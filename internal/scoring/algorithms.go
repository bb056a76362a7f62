package scoring

import "github.com/f5devcentral/llm-inference-lb/internal/pool"

// normKind selects which normalization primitive a metric leg uses.
type normKind int

const (
	normNone normKind = iota
	normMinMax
	normPreciseLogCache   // bounds [0.2, 1.0]
	normPreciseLogRunning // bounds [0.15, 0.95]
	normRatio
	normAdaptiveDist
	normSmoothed
	normSquared
)

// weightKind selects which weight-adaptation family an algorithm uses.
type weightKind int

const (
	weightFixed weightKind = iota
	weightCVAdaptive
	weightWaitingProgressive
)

// algoSpec is one row of the closed algorithm table.
type algoSpec struct {
	threeMetric bool
	qNorm       normKind
	cNorm       normKind
	rNorm       normKind // only meaningful when threeMetric
	weights     weightKind
}

// algoTable is the full closed set. No algorithm may be added at runtime;
// this table is the exhaustive dispatch surface.
var algoTable = map[pool.AlgorithmName]algoSpec{
	pool.S1:                     {qNorm: normMinMax, cNorm: normNone, weights: weightFixed},
	pool.S1Enhanced:             {qNorm: normMinMax, cNorm: normPreciseLogCache, weights: weightFixed},
	pool.S1Adaptive:             {qNorm: normMinMax, cNorm: normMinMax, weights: weightCVAdaptive},
	pool.S1Ratio:                {qNorm: normNone, cNorm: normRatio, weights: weightFixed},
	pool.S1Precise:              {qNorm: normNone, cNorm: normNone, weights: weightFixed},
	pool.S1Nonlinear:            {qNorm: normMinMax, cNorm: normSquared, weights: weightFixed},
	pool.S1Balanced:             {qNorm: normSmoothed, cNorm: normSmoothed, weights: weightFixed},
	pool.S1AdaptiveDistribution: {qNorm: normAdaptiveDist, cNorm: normAdaptiveDist, weights: weightFixed},
	pool.S1Advanced:             {qNorm: normAdaptiveDist, cNorm: normAdaptiveDist, weights: weightCVAdaptive},
	pool.S1DynamicWaiting:       {qNorm: normAdaptiveDist, cNorm: normAdaptiveDist, weights: weightWaitingProgressive},

	pool.S2:               {threeMetric: true, qNorm: normMinMax, cNorm: normNone, rNorm: normMinMax, weights: weightFixed},
	pool.S2Enhanced:       {threeMetric: true, qNorm: normMinMax, cNorm: normPreciseLogCache, rNorm: normPreciseLogRunning, weights: weightFixed},
	pool.S2Nonlinear:      {threeMetric: true, qNorm: normSquared, cNorm: normSquared, rNorm: normSquared, weights: weightFixed},
	pool.S2Adaptive:       {threeMetric: true, qNorm: normMinMax, cNorm: normMinMax, rNorm: normMinMax, weights: weightCVAdaptive},
	pool.S2Advanced:       {threeMetric: true, qNorm: normAdaptiveDist, cNorm: normAdaptiveDist, rNorm: normAdaptiveDist, weights: weightCVAdaptive},
	pool.S2DynamicWaiting: {threeMetric: true, qNorm: normAdaptiveDist, cNorm: normAdaptiveDist, rNorm: normAdaptiveDist, weights: weightWaitingProgressive},
}

// Recognized reports whether name is a member of the closed algorithm set.
func Recognized(name pool.AlgorithmName) bool {
	_, ok := algoTable[name]
	return ok
}

// RequiresThreeMetric reports whether the algorithm consumes running_req.
func RequiresThreeMetric(name pool.AlgorithmName) bool {
	return algoTable[name].threeMetric
}

// goodness dispatches to the right normalization primitive for one metric
// leg. other is only consulted for normRatio (two-node-only); pass nil
// (or a set with != 2 candidates) to fall back to min-max.
func goodness(kind normKind, s crossMemberStats, x float64, otherForRatio *float64) float64 {
	switch kind {
	case normNone:
		return noneGoodness(x)
	case normMinMax:
		return minMaxGoodness(s, x)
	case normPreciseLogCache:
		return preciseLogGoodness(s, x, 0.2, 1.0)
	case normPreciseLogRunning:
		return preciseLogGoodness(s, x, 0.15, 0.95)
	case normRatio:
		if otherForRatio != nil {
			return ratioWeightGoodness(x, *otherForRatio)
		}
		// Candidate sets where the two-node-only ratio-weight primitive
		// does not apply fall back to min-max.
		return minMaxGoodness(s, x)
	case normAdaptiveDist:
		return adaptiveDistributionGoodness(s, x)
	case normSmoothed:
		return smoothedGoodness(s, x)
	case normSquared:
		return squaredGoodness(s, x)
	default:
		return 0
	}
}
