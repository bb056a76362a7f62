// Package obsmetrics exposes this sidecar's own health as Prometheus
// metrics on /metrics: fetch and scrape outcomes, member scores, and
// selection counts and latency.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric this process publishes about itself. It
// wraps a dedicated prometheus.Registry rather than the global default so
// tests can construct isolated instances.
type Registry struct {
	reg *prometheus.Registry

	SelectRequestsTotal  *prometheus.CounterVec
	SelectOutcomesTotal  *prometheus.CounterVec
	SelectLatencySeconds *prometheus.HistogramVec

	FetchSuccessTotal *prometheus.CounterVec
	FetchFailureTotal *prometheus.CounterVec

	ScrapeSuccessTotal *prometheus.CounterVec
	ScrapeFailureTotal *prometheus.CounterVec

	PoolMemberCount *prometheus.GaugeVec
	MemberScore     *prometheus.GaugeVec
}

// New registers and returns the full metric set.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{
		reg: reg,
		SelectRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_select_requests_total",
			Help: "Total /scheduler/select requests handled, by pool key.",
		}, []string{"pool"}),
		SelectOutcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_select_outcomes_total",
			Help: "Selection outcomes, by pool key and outcome (addr, none, fallback).",
		}, []string{"pool", "outcome"}),
		SelectLatencySeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llmlb_select_latency_seconds",
			Help:    "Latency of selection decisions, by pool key.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pool"}),
		FetchSuccessTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_ltm_fetch_success_total",
			Help: "Successful LTM membership fetches, by pool key.",
		}, []string{"pool"}),
		FetchFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_ltm_fetch_failure_total",
			Help: "Failed LTM membership fetches, by pool key.",
		}, []string{"pool"}),
		ScrapeSuccessTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_metrics_scrape_success_total",
			Help: "Successful member metrics scrapes, by pool key.",
		}, []string{"pool"}),
		ScrapeFailureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llmlb_metrics_scrape_failure_total",
			Help: "Failed member metrics scrapes, by pool key and status.",
		}, []string{"pool", "status"}),
		PoolMemberCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llmlb_pool_member_count",
			Help: "Current member count, by pool key.",
		}, []string{"pool"}),
		MemberScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "llmlb_member_score",
			Help: "Current composite score, by pool key and member address.",
		}, []string{"pool", "member"}),
	}
	return r
}

// Gatherer exposes the underlying registry for wiring into promhttp.Handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
