// Package collector implements the Metrics Collector: per tick, it
// concurrently scrapes every known member's Prometheus metrics endpoint and
// records the semantic gauges the pool's engine kind maps to.
package collector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/obsmetrics"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
	"github.com/f5devcentral/llm-inference-lb/internal/scoring"
)

// maxScrapeBody bounds how much of a member's /metrics response is read, to
// protect against a misbehaving or oversized endpoint.
const maxScrapeBody = 2 << 20 // 2MiB

// Collector scrapes every configured pool's members on its own interval.
type Collector struct {
	store          *pool.Store
	client         *http.Client
	maxConcurrency int
	metrics        *obsmetrics.Registry // nil disables self-observability

	mu       sync.Mutex
	inFlight map[string]bool // pool key -> tick running
}

// New builds a Collector. maxConcurrency bounds per-tick in-flight scrapes
// across all of a pool's members. metrics may be nil to skip
// self-observability instrumentation.
func New(store *pool.Store, maxConcurrency int, metrics *obsmetrics.Registry) *Collector {
	if maxConcurrency <= 0 {
		maxConcurrency = 64
	}
	return &Collector{
		store:          store,
		client:         &http.Client{},
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		inFlight:       make(map[string]bool),
	}
}

// Run scrapes every pool in the store until ctx is cancelled, re-reading
// interval before arming each tick so a hot-reloaded metrics_fetch_interval
// takes effect without a restart. A pool whose previous tick is still
// running is skipped for this tick rather than queued.
func (c *Collector) Run(ctx context.Context, interval func() time.Duration) {
	timer := time.NewTimer(interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			for _, key := range c.store.Keys() {
				key := key
				if !c.startTick(key) {
					continue
				}
				go func() {
					defer c.endTick(key)
					c.tick(ctx, key)
				}()
			}
			timer.Reset(interval())
		}
	}
}

func (c *Collector) startTick(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[key] {
		return false
	}
	c.inFlight[key] = true
	return true
}

func (c *Collector) endTick(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

// tick scrapes every member of one pool concurrently, bounded by
// maxConcurrency, then triggers a rescore.
func (c *Collector) tick(ctx context.Context, poolKey string) {
	p, ok := c.store.Get(poolKey)
	if !ok {
		return
	}
	cfg := p.Config()
	members := p.Members()
	if len(members) == 0 {
		return
	}

	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup
	wg.Add(len(members))
	for _, ms := range members {
		ms := ms
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; wg.Done() }()
			c.scrapeOne(ctx, p, cfg, ms.Member)
		}()
	}
	wg.Wait()

	if c.metrics != nil {
		c.metrics.PoolMemberCount.WithLabelValues(poolKey).Set(float64(len(members)))
	}
	c.rescore(poolKey, p)
}

// scrapeOne fetches and parses one member's metrics endpoint and records the
// outcome in the pool store. It never returns an error to the caller;
// failures are recorded as member status.
func (c *Collector) scrapeOne(ctx context.Context, p *pool.Pool, cfg pool.Config, m pool.Member) {
	snap, status, err := c.scrape(ctx, cfg, m)
	now := time.Now()
	if err != nil {
		slog.Warn("metrics scrape failed", "pool", cfg.Key(), "member", m.Addr(), "status", status, "error", err)
		if c.metrics != nil {
			c.metrics.ScrapeFailureTotal.WithLabelValues(cfg.Key(), string(status)).Inc()
		}
		// The last good snapshot is retained; only status and score change.
		p.MarkScrapeFailure(m, status, now)
		return
	}
	if c.metrics != nil {
		c.metrics.ScrapeSuccessTotal.WithLabelValues(cfg.Key()).Inc()
	}
	p.UpdateMetrics(m, snap, status, now)
}

func (c *Collector) scrape(ctx context.Context, cfg pool.Config, m pool.Member) (pool.MetricSnapshot, pool.Status, error) {
	ep := cfg.Metrics
	port := m.Port
	if ep.OverridePort != 0 {
		port = ep.OverridePort
	}
	url := fmt.Sprintf("%s://%s:%d/%s", ep.Scheme, m.IP, port, trimLeadingSlash(ep.Path))

	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pool.StatusUnreachable, fmt.Errorf("building request: %w", err)
	}
	if err := applyAuth(req, ep); err != nil {
		return nil, pool.StatusUnreachable, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, pool.StatusUnreachable, fmt.Errorf("scraping %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pool.StatusUnreachable, fmt.Errorf("scraping %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScrapeBody))
	if err != nil {
		return nil, pool.StatusUnreachable, fmt.Errorf("reading body from %s: %w", url, err)
	}

	snap, err := parseSnapshot(body, cfg.EngineKind)
	if err != nil {
		return nil, pool.StatusParseError, fmt.Errorf("parsing metrics from %s: %w", url, err)
	}
	return snap, pool.StatusReady, nil
}

func applyAuth(req *http.Request, ep pool.MetricsEndpoint) error {
	switch {
	case ep.BearerKey != "":
		req.Header.Set("Authorization", "Bearer "+ep.BearerKey)
	case ep.BasicUser != "":
		pass := os.Getenv(ep.BasicPassEnv)
		if pass == "" {
			return fmt.Errorf("metrics basic auth: env var %q is unset", ep.BasicPassEnv)
		}
		req.SetBasicAuth(ep.BasicUser, pass)
	}
	return nil
}

// parseSnapshot parses a Prometheus text-exposition body and extracts only
// the metric names the engine kind maps to a semantic quantity. When a
// metric family reports more than one sample (label suffixes), the last
// sample's value wins.
func parseSnapshot(body []byte, kind enginemap.Kind) (pool.MetricSnapshot, error) {
	parser := expfmt.NewTextParser(model.LegacyValidation)
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	rawToSem := enginemap.RawNameToSemantic(kind)
	snap := make(pool.MetricSnapshot)
	for name, family := range families {
		sem, ok := rawToSem[name]
		if !ok {
			continue
		}
		var v float64
		var found bool
		for _, m := range family.Metric {
			switch {
			case m.Gauge != nil:
				v, found = m.Gauge.GetValue(), true
			case m.Counter != nil:
				v, found = m.Counter.GetValue(), true
			case m.Untyped != nil:
				v, found = m.Untyped.GetValue(), true
			}
		}
		if found {
			snap[sem] = v
		}
	}
	if len(snap) == 0 {
		return nil, fmt.Errorf("no recognized metrics for engine kind %q in scrape body", kind)
	}
	return snap, nil
}

func trimLeadingSlash(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}

// rescore recomputes and stores every member's score for this pool: after
// every metrics tick, all members are rescored under the pool's configured
// algorithm.
func (c *Collector) rescore(poolKey string, p *pool.Pool) {
	members := p.Members()
	scores := scoring.Compute(members, p.Config().Algorithm)
	p.UpdateScores(scores, time.Now())
	if c.metrics != nil {
		for m, s := range scores {
			c.metrics.MemberScore.WithLabelValues(poolKey, m.Addr()).Set(s)
		}
	}
}
