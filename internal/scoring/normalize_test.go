package scoring

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMinMaxGoodnessCollapsesToBinaryOnTwoMembers(t *testing.T) {
	s := computeStats([]float64{0, 10})
	if g := minMaxGoodness(s, 0); !almostEqual(g, 1) {
		t.Errorf("expected the minimum to score 1, got %v", g)
	}
	if g := minMaxGoodness(s, 10); !almostEqual(g, 0) {
		t.Errorf("expected the maximum to score 0, got %v", g)
	}
}

func TestMinMaxGoodnessDegenerateAllEqual(t *testing.T) {
	s := computeStats([]float64{5, 5, 5})
	g := minMaxGoodness(s, 5)
	if g < 0 || g > 1 {
		t.Fatalf("expected an in-range value when max==min, got %v", g)
	}
}

func TestPreciseLogGoodnessAtMeanHitsWindowMidpoint(t *testing.T) {
	s := computeStats([]float64{0.4, 0.4, 0.4})
	// x == mean: ratio 1, log2 0, midpoint of the clamp window, so the
	// rescaled value is the midpoint of [lo, hi] and goodness its inverse.
	got := preciseLogGoodness(s, 0.4, 0.2, 1.0)
	if !almostEqual(got, 1-0.6) {
		t.Errorf("expected goodness 0.4 at the mean for bounds [0.2,1.0], got %v", got)
	}
}

func TestPreciseLogGoodnessClampsAtWindowEdges(t *testing.T) {
	s := computeStats([]float64{1, 1, 100})
	// A member far above the mean saturates at hi, so goodness bottoms out
	// at 1-hi; far below saturates at lo, goodness tops out at 1-lo.
	worst := preciseLogGoodness(s, 1e6, 0.2, 1.0)
	if !almostEqual(worst, 0) {
		t.Errorf("expected goodness 0 far above the mean, got %v", worst)
	}
	best := preciseLogGoodness(s, 1e-9, 0.2, 1.0)
	if !almostEqual(best, 0.8) {
		t.Errorf("expected goodness 0.8 far below the mean, got %v", best)
	}
}

func TestRatioWeightGoodness(t *testing.T) {
	if g := ratioWeightGoodness(3, 1); !almostEqual(g, 0.25) {
		t.Errorf("expected the heavier member to get the lighter share 0.25, got %v", g)
	}
	if g := ratioWeightGoodness(0, 0); !almostEqual(g, 0.5) {
		t.Errorf("expected an even split when both values are 0, got %v", g)
	}
}

func TestAdaptiveDistributionGoodnessUniformOnZeroStddev(t *testing.T) {
	s := computeStats([]float64{7, 7, 7})
	for _, x := range []float64{7, 7, 7} {
		if g := adaptiveDistributionGoodness(s, x); !almostEqual(g, 0.5) {
			t.Fatalf("expected uniform 0.5 when stddev is 0, got %v", g)
		}
	}
}

func TestAdaptiveDistributionGoodnessOrdering(t *testing.T) {
	s := computeStats([]float64{1, 5, 9})
	below := adaptiveDistributionGoodness(s, 1)
	at := adaptiveDistributionGoodness(s, 5)
	above := adaptiveDistributionGoodness(s, 9)
	if !(below > at && at > above) {
		t.Errorf("expected strictly decreasing goodness across increasing load: %v %v %v", below, at, above)
	}
	if !almostEqual(at, 0.5) {
		t.Errorf("expected the mean to map to 0.5, got %v", at)
	}
}

func TestSmoothedGoodnessStaysInCompressedRange(t *testing.T) {
	s := computeStats([]float64{0, 4, 10})
	for _, x := range []float64{0, 4, 10} {
		g := smoothedGoodness(s, x)
		if g < 0.2-1e-9 || g > 0.8+1e-9 {
			t.Errorf("expected smoothed goodness in [0.2,0.8], got %v for x=%v", g, x)
		}
	}
	if g := smoothedGoodness(s, 0); !almostEqual(g, 0.8) {
		t.Errorf("expected the best member to hit 0.8, got %v", g)
	}
	if g := smoothedGoodness(s, 10); !almostEqual(g, 0.2) {
		t.Errorf("expected the worst member to hit 0.2, got %v", g)
	}
}

func TestSquaredGoodnessAmplifiesSeparation(t *testing.T) {
	s := computeStats([]float64{0, 5, 10})
	linear := minMaxGoodness(s, 5)
	squared := squaredGoodness(s, 5)
	// Squaring the badness lifts interior members toward the best while the
	// extremes stay pinned at 0 and 1, widening the gap to the worst.
	if !almostEqual(squaredGoodness(s, 0), 1) || !almostEqual(squaredGoodness(s, 10), 0) {
		t.Error("expected the extremes to stay at 1 and 0")
	}
	if squared <= linear {
		t.Errorf("expected squared badness to raise mid-pack goodness: squared=%v linear=%v", squared, linear)
	}
}
