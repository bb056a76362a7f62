package pool

import (
	"sync"
	"time"
)

// Pool is one (name, partition) pool: its configuration plus its live
// member set. Each Pool owns its own RWMutex so that reads/writes to one
// pool never contend with another.
type Pool struct {
	mu      sync.RWMutex
	cfg     Config
	members map[Member]*MemberState
}

func newPool(cfg Config) *Pool {
	return &Pool{
		cfg:     cfg,
		members: make(map[Member]*MemberState),
	}
}

// Config returns a copy of the pool's current configuration.
func (p *Pool) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// applyConfig updates the mutable fields of the pool's configuration
// in place: algorithm choice, weights, thresholds, fallback flags, and the
// metrics endpoint template. Identity fields (name, partition) are assumed
// unchanged by the caller (Store.AddOrUpdatePool only calls this on the pool
// registered under the config's own key).
func (p *Pool) applyConfig(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// Members returns a snapshot slice of all current member states. Safe to
// call concurrently with writers; never observes a torn member set.
func (p *Pool) Members() []MemberState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MemberState, 0, len(p.members))
	for _, ms := range p.members {
		out = append(out, ms.Snapshot())
	}
	return out
}

// MemberCount returns the current number of members, without copying state.
func (p *Pool) MemberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Get returns a snapshot of one member's state, and whether it exists.
func (p *Pool) Get(m Member) (MemberState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ms, ok := p.members[m]
	if !ok {
		return MemberState{}, false
	}
	return ms.Snapshot(), true
}

// Reconcile replaces the member set with exactly the given set: members
// present in both are retained (metrics/score preserved); members only
// present before are dropped; members only present in newSet are added with
// Status READY, empty metrics, score 0. Runs entirely under the pool's
// write lock, so readers observe either the pre- or post-reconciliation set.
func (p *Pool) Reconcile(newSet []Member) {
	p.mu.Lock()
	defer p.mu.Unlock()

	want := make(map[Member]struct{}, len(newSet))
	for _, m := range newSet {
		want[m] = struct{}{}
	}

	for m := range p.members {
		if _, ok := want[m]; !ok {
			delete(p.members, m)
		}
	}

	for m := range want {
		if _, ok := p.members[m]; !ok {
			p.members[m] = &MemberState{
				Member: m,
				Status: StatusReady,
				Score:  0,
			}
		}
	}
}

// UpdateMetrics records a new raw metric snapshot and status for one member
// as of now. If the member no longer exists (removed by a concurrent
// reconcile), the update is silently discarded. Does not touch Score; that
// is the Score Engine's job, triggered separately after this call returns.
func (p *Pool) UpdateMetrics(m Member, snap MetricSnapshot, status Status, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ms, ok := p.members[m]
	if !ok {
		return
	}
	ms.Metrics = snap
	ms.Status = status
	ms.LastMetricsUpdate = now
}

// UpdateScores applies a freshly computed score map. Members absent from
// scores (e.g. removed mid-computation) are left untouched; members in
// scores but no longer present are ignored.
func (p *Pool) UpdateScores(scores map[Member]float64, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for m, s := range scores {
		ms, ok := p.members[m]
		if !ok {
			continue
		}
		ms.Score = s
		ms.LastScoreUpdate = now
	}
}

// MarkScrapeFailure records a failed scrape for one member: its status
// changes and its score drops to 0 immediately, ahead of the next rescore,
// while its last good metric snapshot and LastMetricsUpdate are retained.
func (p *Pool) MarkScrapeFailure(m Member, status Status, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ms, ok := p.members[m]
	if !ok {
		return
	}
	ms.Status = status
	ms.Score = 0
	ms.LastScoreUpdate = now
}
