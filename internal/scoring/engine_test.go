package scoring

import (
	"math"
	"testing"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

func readyMember(ip string, port int, q, c float64) pool.MemberState {
	return pool.MemberState{
		Member: pool.Member{IP: ip, Port: port},
		Status: pool.StatusReady,
		Metrics: pool.MetricSnapshot{
			enginemap.WaitingQueue: q,
			enginemap.CacheUsage:   c,
		},
	}
}

func TestComputeS1PrefersLowerQueueAndCache(t *testing.T) {
	members := []pool.MemberState{
		readyMember("10.0.0.1", 8000, 0, 0),    // best on both
		readyMember("10.0.0.2", 8000, 10, 0.9), // worst on both
	}
	algo := pool.Algorithm{Name: pool.S1, Weights: pool.Weights{WA: 0.5, WB: 0.5}}
	scores := Compute(members, algo)

	best := scores[members[0].Member]
	worst := scores[members[1].Member]
	if best <= worst {
		t.Fatalf("expected best member to outscore worst: best=%v worst=%v", best, worst)
	}
	if best != 1 {
		t.Errorf("expected the extremal-best member to score exactly 1, got %v", best)
	}
}

func TestComputeNonReadyAlwaysZero(t *testing.T) {
	ready := readyMember("10.0.0.1", 8000, 0, 0)
	down := pool.MemberState{
		Member: pool.Member{IP: "10.0.0.2", Port: 8000},
		Status: pool.StatusUnreachable,
		Metrics: pool.MetricSnapshot{
			enginemap.WaitingQueue: 999, // stale data, must not count
			enginemap.CacheUsage:   999,
		},
	}
	algo := pool.Algorithm{Name: pool.S1, Weights: pool.Weights{WA: 0.5, WB: 0.5}}
	scores := Compute([]pool.MemberState{ready, down}, algo)

	if scores[down.Member] != 0 {
		t.Fatalf("expected non-READY member to score 0, got %v", scores[down.Member])
	}
}

func TestComputeMissingMetricContributesZeroLeg(t *testing.T) {
	full := readyMember("10.0.0.1", 8000, 0, 0)
	partial := pool.MemberState{
		Member: pool.Member{IP: "10.0.0.2", Port: 8000},
		Status: pool.StatusReady,
		Metrics: pool.MetricSnapshot{
			enginemap.WaitingQueue: 0,
			// cache_usage never reported
		},
	}
	algo := pool.Algorithm{Name: pool.S1, Weights: pool.Weights{WA: 0.5, WB: 0.5}}
	scores := Compute([]pool.MemberState{full, partial}, algo)

	// partial only earns the waiting leg (0.5 * 1.0 best-case), never the
	// cache leg, since it never reported cache_usage.
	if scores[partial.Member] >= scores[full.Member] {
		t.Errorf("expected partial member's missing leg to cost it score: partial=%v full=%v",
			scores[partial.Member], scores[full.Member])
	}
}

func TestComputeUnrecognizedAlgorithmScoresZero(t *testing.T) {
	members := []pool.MemberState{readyMember("10.0.0.1", 8000, 0, 0)}
	algo := pool.Algorithm{Name: pool.AlgorithmName("not_a_real_algorithm")}
	scores := Compute(members, algo)
	if scores[members[0].Member] != 0 {
		t.Fatalf("expected unrecognized algorithm to score 0, got %v", scores[members[0].Member])
	}
}

// TestDynamicWaitingTransition pins the dynamic-waiting weight curve: at
// max_waiting_queue=0 the waiting axis is nearly silent, at 60 it dominates.
func TestDynamicWaitingTransition(t *testing.T) {
	w := pool.Weights{WA: 0.4, WB: 0.3, WG: 0.3, HasWG: true, TransitionPoint: 30, HasTransitionPt: true, Steepness: 1.0, HasSteepness: true}
	resolved := resolvedWeights(w, true)

	atZero := waitingProgressiveWeight(resolved, 0, true)
	if math.Abs(atZero.WA-0.4*0.2) > 1e-9 {
		t.Errorf("at max_waiting=0 expected w'_a=%v, got %v", 0.4*0.2, atZero.WA)
	}
	if math.Abs(atZero.WB-0.3*1.8) > 1e-9 {
		t.Errorf("at max_waiting=0 expected w'_b=%v, got %v", 0.3*1.8, atZero.WB)
	}

	atSixty := waitingProgressiveWeight(resolved, 60, true)
	wantIntensity := math.Tanh(2.0)
	wantWA := 0.4 * (0.2 + 2.3*wantIntensity)
	wantWB := 0.3 * (1.8 - 1.5*wantIntensity)
	if math.Abs(atSixty.WA-wantWA) > 1e-6 {
		t.Errorf("at max_waiting=60 expected w'_a≈%v, got %v", wantWA, atSixty.WA)
	}
	if math.Abs(atSixty.WB-wantWB) > 1e-6 {
		t.Errorf("at max_waiting=60 expected w'_b≈%v, got %v", wantWB, atSixty.WB)
	}
	if atSixty.WA <= atSixty.WB {
		t.Error("expected the waiting axis to dominate at high queue pressure")
	}
}

func TestComputeClampsScoreIntoUnitRange(t *testing.T) {
	for _, name := range []pool.AlgorithmName{pool.S1, pool.S1Enhanced, pool.S2, pool.S2Advanced} {
		algo := pool.Algorithm{Name: name, Weights: pool.Weights{WA: 0.4, WB: 0.4, WG: 0.4, HasWG: true}}
		members := []pool.MemberState{
			readyMember("10.0.0.1", 8000, 5, 0.5),
			readyMember("10.0.0.2", 8000, 50, 0.5),
			readyMember("10.0.0.3", 8000, 0, 0.01),
		}
		if RequiresThreeMetric(name) {
			for i := range members {
				members[i].Metrics[enginemap.RunningReq] = float64(i)
			}
		}
		scores := Compute(members, algo)
		for m, s := range scores {
			if s < 0 || s > 1 {
				t.Errorf("algorithm %s: member %v score out of range: %v", name, m, s)
			}
		}
	}
}
