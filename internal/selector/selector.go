// Package selector implements filtered weighted-random endpoint selection,
// plus simulate/analyze statistical modes over a frozen score snapshot.
package selector

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand/v2"
	"sync"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/obsmetrics"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// None and Fallback are the two literal non-address strings a selection can
// produce.
const (
	None     = "none"
	Fallback = "fallback"
)

// Selector draws one endpoint for a pool given a caller-supplied candidate
// set, applying threshold filtering, fallback, and weighted-random choice.
type Selector struct {
	store *pool.Store

	// Metrics, when set, records selection counts and latency for
	// self-observability. Left nil by New; cmd/sidecar wires it in.
	Metrics *obsmetrics.Registry

	mu  sync.Mutex // guards rng; see taskRand
	rng *mrand.Rand
}

// New builds a Selector over store.
func New(store *pool.Store) *Selector {
	return &Selector{store: store, rng: newTaskRand()}
}

// newTaskRand seeds a per-task PRNG from a cryptographic source at startup,
// keeping a globally-locked PRNG off the hot path. Selector callers get
// their own PRNG via taskRand(); this shared one is only used to seed those
// per-call PRNGs.
func newTaskRand() *mrand.Rand {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand failure is effectively unreachable in practice; fall
		// back to a low-quality but functional seed rather than panicking.
		binary.LittleEndian.PutUint64(seed[:8], 0x9e3779b97f4a7c15)
	}
	s1 := binary.LittleEndian.Uint64(seed[:8])
	s2 := binary.LittleEndian.Uint64(seed[8:])
	return mrand.New(mrand.NewPCG(s1, s2))
}

// Select resolves the pool, applies the fallback gate, intersects the
// candidate set with live membership, filters by raw-metric thresholds and
// zero scores, then draws weighted-random — returning either a chosen
// "ip:port", or the literal string None or Fallback.
func (s *Selector) Select(poolKey string, candidates []string) string {
	start := time.Now()
	outcome := None
	defer func() {
		if s.Metrics == nil {
			return
		}
		s.Metrics.SelectRequestsTotal.WithLabelValues(poolKey).Inc()
		s.Metrics.SelectOutcomesTotal.WithLabelValues(poolKey, outcomeLabel(outcome)).Inc()
		s.Metrics.SelectLatencySeconds.WithLabelValues(poolKey).Observe(time.Since(start).Seconds())
	}()

	p, ok := s.store.Get(poolKey)
	if !ok {
		return None
	}
	cfg := p.Config()
	if cfg.Fallback.PoolFallback {
		outcome = Fallback
		return Fallback
	}

	candidateSet := parseAddrs(candidates)
	members := p.Members()

	eligible := make([]pool.MemberState, 0, len(members))
	for _, ms := range members {
		if _, want := candidateSet[ms.Member.Addr()]; !want {
			continue
		}
		eligible = append(eligible, ms)
	}
	if len(eligible) == 0 {
		return None
	}

	eligible = applyThresholds(eligible, cfg.Fallback)
	eligible = dropZeroScore(eligible)
	if len(eligible) == 0 {
		return None
	}

	rng := s.taskRand()
	chosen := weightedDraw(eligible, rng)
	outcome = chosen.Member.Addr()
	return outcome
}

// outcomeLabel collapses a chosen "ip:port" into a fixed low-cardinality
// label so the addr metric doesn't explode the metrics label set.
func outcomeLabel(outcome string) string {
	if outcome == None || outcome == Fallback {
		return outcome
	}
	return "selected"
}

// taskRand hands out an independent per-call PRNG derived from the
// Selector's own, taking the lock only for the brief reseed.
func (s *Selector) taskRand() *mrand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	s1, s2 := s.rng.Uint64(), s.rng.Uint64()
	return mrand.New(mrand.NewPCG(s1, s2))
}

// applyThresholds drops any member whose raw metric exceeds its pool's
// configured threshold. A member lacking the metric is conservatively kept.
func applyThresholds(members []pool.MemberState, fb pool.FallbackConfig) []pool.MemberState {
	if fb.MemberRunningReqThreshold == nil && fb.MemberWaitingQueueThreshold == nil {
		return members
	}
	out := make([]pool.MemberState, 0, len(members))
	for _, ms := range members {
		if fb.MemberRunningReqThreshold != nil {
			if v, ok := ms.Metrics[enginemap.RunningReq]; ok && v > *fb.MemberRunningReqThreshold {
				continue
			}
		}
		if fb.MemberWaitingQueueThreshold != nil {
			if v, ok := ms.Metrics[enginemap.WaitingQueue]; ok && v > *fb.MemberWaitingQueueThreshold {
				continue
			}
		}
		out = append(out, ms)
	}
	return out
}

func dropZeroScore(members []pool.MemberState) []pool.MemberState {
	out := make([]pool.MemberState, 0, len(members))
	for _, ms := range members {
		if ms.Score > 0 {
			out = append(out, ms)
		}
	}
	return out
}

// weightedDraw draws u ~ Uniform(0, Σ scores) and picks the first member
// whose cumulative score reaches u. Callers must guarantee members is
// non-empty and every member has a positive score.
func weightedDraw(members []pool.MemberState, rng *mrand.Rand) pool.MemberState {
	total := 0.0
	for _, ms := range members {
		total += ms.Score
	}
	u := rng.Float64() * total

	running := 0.0
	for _, ms := range members {
		running += ms.Score
		if running >= u {
			return ms
		}
	}
	return members[len(members)-1]
}

func parseAddrs(addrs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		out[a] = struct{}{}
	}
	return out
}

// frozenCandidates resolves (pool, candidate addrs) into the eligible,
// post-filter member set exactly as Select would, without drawing — used by
// Simulate/Analyze to freeze state across N independent draws.
func (s *Selector) frozenCandidates(poolKey string, candidates []string) ([]pool.MemberState, bool) {
	p, ok := s.store.Get(poolKey)
	if !ok {
		return nil, false
	}
	cfg := p.Config()
	if cfg.Fallback.PoolFallback {
		return nil, false
	}

	candidateSet := parseAddrs(candidates)
	members := p.Members()
	eligible := make([]pool.MemberState, 0, len(members))
	for _, ms := range members {
		if _, want := candidateSet[ms.Member.Addr()]; !want {
			continue
		}
		eligible = append(eligible, ms)
	}
	eligible = applyThresholds(eligible, cfg.Fallback)
	eligible = dropZeroScore(eligible)
	return eligible, true
}

// clampProbability guards against floating-point drift pushing a
// probability fractionally outside [0,1].
func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
