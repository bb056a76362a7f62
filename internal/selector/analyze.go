package selector

import (
	"math"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// Quality is the published grade bucket for an analyze run.
type Quality string

const (
	QualityExcellent         Quality = "Excellent"
	QualityGood              Quality = "Good"
	QualityAverage           Quality = "Average"
	QualityNeedsOptimization Quality = "Needs-Optimization"
)

// SimulateResult is the /simulate response body shape.
type SimulateResult struct {
	Results    map[string]int `json:"results"`
	Iterations int            `json:"iterations"`
}

// MemberAnalysis is one member's row in an /analyze response.
type MemberAnalysis struct {
	Addr                   string  `json:"addr"`
	TheoreticalProbability float64 `json:"theoretical_probability"`
	ActualProbability      float64 `json:"actual_probability"`
	SelectionCount         int     `json:"selection_count"`
	Deviation              float64 `json:"deviation"`
	DeviationPercentage    float64 `json:"deviation_percentage"`
}

// OverallStatistics summarizes absolute deviation across all members.
type OverallStatistics struct {
	MeanAbsDeviation float64 `json:"mean_abs_deviation"`
	MaxAbsDeviation  float64 `json:"max_abs_deviation"`
	MinAbsDeviation  float64 `json:"min_abs_deviation"`
	StdDevDeviation  float64 `json:"stddev_deviation"`
	SuccessRate      float64 `json:"success_rate"`
}

// AnalyzeResult is the /analyze response body shape.
type AnalyzeResult struct {
	Members           []MemberAnalysis  `json:"members"`
	OverallStatistics OverallStatistics `json:"overall_statistics"`
	QualityAssessment Quality           `json:"quality_assessment"`
}

// Simulate performs iterations independent draws over the frozen score
// vector for (poolKey, candidates) and reports raw selection counts.
// Returns ok=false if the pool is absent, in fallback, or has no eligible
// members (mirroring Select's early-exit cases, with no draws performed).
func (s *Selector) Simulate(poolKey string, candidates []string, iterations int) (SimulateResult, bool) {
	eligible, ok := s.frozenCandidates(poolKey, candidates)
	if !ok || len(eligible) == 0 {
		return SimulateResult{}, false
	}

	rng := s.taskRand()
	results := make(map[string]int, len(eligible))
	for _, ms := range eligible {
		results[ms.Member.Addr()] = 0
	}
	for i := 0; i < iterations; i++ {
		chosen := weightedDraw(eligible, rng)
		results[chosen.Member.Addr()]++
	}
	return SimulateResult{Results: results, Iterations: iterations}, true
}

// Analyze performs iterations independent draws over the frozen score
// vector and reports theoretical-vs-empirical distribution statistics plus
// a published quality grade.
func (s *Selector) Analyze(poolKey string, candidates []string, iterations int) (AnalyzeResult, bool) {
	eligible, ok := s.frozenCandidates(poolKey, candidates)
	if !ok || len(eligible) == 0 {
		return AnalyzeResult{}, false
	}

	total := 0.0
	for _, ms := range eligible {
		total += ms.Score
	}

	rng := s.taskRand()
	counts := make(map[pool.Member]int, len(eligible))
	for i := 0; i < iterations; i++ {
		chosen := weightedDraw(eligible, rng)
		counts[chosen.Member]++
	}

	members := make([]MemberAnalysis, 0, len(eligible))
	var devs []float64
	successes := 0
	for _, ms := range eligible {
		theoretical := clampProbability(ms.Score / math.Max(epsilonTotal, total))
		count := counts[ms.Member]
		actual := float64(count) / float64(iterations)
		dev := math.Abs(actual - theoretical)
		devPct := 0.0
		if theoretical > 0 {
			devPct = dev / theoretical * 100
		}
		members = append(members, MemberAnalysis{
			Addr:                   ms.Member.Addr(),
			TheoreticalProbability: theoretical,
			ActualProbability:      actual,
			SelectionCount:         count,
			Deviation:              dev,
			DeviationPercentage:    devPct,
		})
		devs = append(devs, dev)
		successes += count
	}

	stats := summarizeDeviations(devs)
	stats.SuccessRate = float64(successes) / float64(iterations) * 100

	return AnalyzeResult{
		Members:           members,
		OverallStatistics: stats,
		QualityAssessment: gradeQuality(stats),
	}, true
}

// epsilonTotal guards a zero total score vector (should not occur given
// dropZeroScore, kept as a defensive floor).
const epsilonTotal = 1e-9

func summarizeDeviations(devs []float64) OverallStatistics {
	if len(devs) == 0 {
		return OverallStatistics{}
	}
	sum, min, max := 0.0, devs[0], devs[0]
	for _, d := range devs {
		sum += d
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	mean := sum / float64(len(devs))

	variance := 0.0
	for _, d := range devs {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(devs))

	return OverallStatistics{
		MeanAbsDeviation: mean,
		MaxAbsDeviation:  max,
		MinAbsDeviation:  min,
		StdDevDeviation:  math.Sqrt(variance),
	}
}

// gradeQuality applies the published grade table, where deviation figures
// are expressed as percentages.
func gradeQuality(s OverallStatistics) Quality {
	meanPct := s.MeanAbsDeviation * 100
	maxPct := s.MaxAbsDeviation * 100
	switch {
	case meanPct < 1.0 && maxPct < 2.0 && s.SuccessRate > 99.0:
		return QualityExcellent
	case meanPct < 2.0 && maxPct < 5.0 && s.SuccessRate > 95.0:
		return QualityGood
	case meanPct < 5.0 && maxPct < 10.0 && s.SuccessRate > 90.0:
		return QualityAverage
	default:
		return QualityNeedsOptimization
	}
}
