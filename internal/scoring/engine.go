// Package scoring computes each PoolMember's composite routing score for
// the closed family of s1_* and s2_* algorithms.
package scoring

import (
	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// Compute returns the score for every member in members, keyed by Member.
// A member whose Status is not READY contributes no data to the cross-member
// statistics of the others and always scores 0, which is how an unreachable
// or parse-failed member loses eligibility at the next rescore. A READY
// member missing one of its algorithm's metric legs contributes 0 for that
// leg rather than dropping out of the composition entirely.
//
// An unrecognized algorithm name scores every member 0; callers are expected
// to reject such configs at load time (internal/config), so this is a
// defensive fallback, not a validation path.
func Compute(members []pool.MemberState, algo pool.Algorithm) map[pool.Member]float64 {
	out := make(map[pool.Member]float64, len(members))
	spec, ok := algoTable[algo.Name]
	if !ok {
		for _, ms := range members {
			out[ms.Member] = 0
		}
		return out
	}

	w := resolvedWeights(algo.Weights, spec.threeMetric)

	qVals := valuesFor(members, enginemap.WaitingQueue)
	cVals := valuesFor(members, enginemap.CacheUsage)
	var rVals map[pool.Member]float64
	if spec.threeMetric {
		rVals = valuesFor(members, enginemap.RunningReq)
	}

	qStats := computeStats(mapValues(qVals))
	cStats := computeStats(mapValues(cVals))
	var rStats *crossMemberStats
	if spec.threeMetric {
		s := computeStats(mapValues(rVals))
		rStats = &s
	}

	var ew effectiveWeight
	switch spec.weights {
	case weightCVAdaptive:
		ew = cvAdaptiveWeight(w, qStats, cStats, rStats)
	case weightWaitingProgressive:
		ew = waitingProgressiveWeight(w, maxOf(mapValues(qVals)), spec.threeMetric)
	default:
		ew = fixedWeight(w)
	}

	for _, ms := range members {
		m := ms.Member
		if ms.Status != pool.StatusReady {
			out[m] = 0
			continue
		}

		total := 0.0
		if qv, ok := qVals[m]; ok {
			total += ew.WA * goodness(spec.qNorm, qStats, qv, nil)
		}
		if cv, ok := cVals[m]; ok {
			total += ew.WB * goodness(spec.cNorm, cStats, cv, ratioOther(cVals, m))
		}
		if spec.threeMetric {
			if rv, ok := rVals[m]; ok {
				total += ew.WG * goodness(spec.rNorm, *rStats, rv, nil)
			}
		}
		out[m] = clamp01(total)
	}
	return out
}

// valuesFor collects the defined values of one metric across READY members
// only; non-READY members never contribute to cross-member statistics.
func valuesFor(members []pool.MemberState, sem enginemap.Semantic) map[pool.Member]float64 {
	out := make(map[pool.Member]float64)
	for _, ms := range members {
		if ms.Status != pool.StatusReady {
			continue
		}
		if v, ok := ms.Metrics[sem]; ok {
			out[ms.Member] = v
		}
	}
	return out
}

func mapValues(m map[pool.Member]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func maxOf(xs []float64) float64 {
	best := 0.0
	for i, x := range xs {
		if i == 0 || x > best {
			best = x
		}
	}
	return best
}

// ratioOther resolves the "other" member's value for the two-node-only
// ratio-weight primitive. It only applies when the candidate set for this
// metric has exactly two members; otherwise callers fall back to min-max.
func ratioOther(vals map[pool.Member]float64, self pool.Member) *float64 {
	if len(vals) != 2 {
		return nil
	}
	for m, v := range vals {
		if m != self {
			other := v
			return &other
		}
	}
	return nil
}
