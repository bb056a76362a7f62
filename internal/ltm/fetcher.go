package ltm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/obsmetrics"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// Fetcher keeps membership in sync: for every pool in the store, on its
// own interval, pull the authoritative member set from LTM and reconcile it
// into the pool store. A failed fetch leaves the pool's membership
// untouched; stale membership beats no membership.
type Fetcher struct {
	client *Client
	store  *pool.Store

	// Metrics, when set, records fetch outcomes for self-observability. Left
	// nil by NewFetcher; cmd/sidecar wires it in before the fetcher starts.
	Metrics *obsmetrics.Registry

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewFetcher builds a Fetcher over client and store.
func NewFetcher(client *Client, store *pool.Store) *Fetcher {
	return &Fetcher{client: client, store: store, inFlight: make(map[string]bool)}
}

// Run fetches every pool in the store until ctx is cancelled, re-reading
// interval before arming each tick so a hot-reloaded pool_fetch_interval
// takes effect without a restart. Fetches across pools proceed in parallel;
// a pool whose previous fetch is still in flight is skipped for this tick,
// never queued.
func (f *Fetcher) Run(ctx context.Context, interval func() time.Duration) {
	timer := time.NewTimer(interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			for _, p := range f.store.All() {
				p := p
				key := p.Config().Key()
				if !f.startFetch(key) {
					continue
				}
				go func() {
					defer f.endFetch(key)
					f.fetchOne(ctx, p)
				}()
			}
			timer.Reset(interval())
		}
	}
}

func (f *Fetcher) startFetch(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight[key] {
		return false
	}
	f.inFlight[key] = true
	return true
}

func (f *Fetcher) endFetch(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, key)
}

func (f *Fetcher) fetchOne(ctx context.Context, p *pool.Pool) {
	cfg := p.Config()
	dtos, err := f.client.ListMembers(ctx, cfg.Partition, cfg.Name)
	if err != nil {
		slog.Warn("LTM membership fetch failed, keeping stale membership",
			"pool", cfg.Key(), "error", err)
		if f.Metrics != nil {
			f.Metrics.FetchFailureTotal.WithLabelValues(cfg.Key()).Inc()
		}
		return
	}
	if f.Metrics != nil {
		f.Metrics.FetchSuccessTotal.WithLabelValues(cfg.Key()).Inc()
	}

	members := make([]pool.Member, 0, len(dtos))
	for _, d := range dtos {
		members = append(members, pool.Member{IP: d.IP, Port: d.Port})
	}
	p.Reconcile(members)
}
