// Package pool implements the in-memory state store: pools, members, raw
// metrics, scores and per-pool configuration, under concurrent access.
package pool

import (
	"strconv"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
)

// Status is a PoolMember's reachability/health flag.
type Status string

const (
	StatusReady       Status = "READY"
	StatusUnreachable Status = "UNREACHABLE"
	StatusParseError  Status = "PARSE_ERROR"
)

// AlgorithmName identifies one member of the closed scoring algorithm set.
type AlgorithmName string

const (
	S1                     AlgorithmName = "s1"
	S1Enhanced             AlgorithmName = "s1_enhanced"
	S1Adaptive             AlgorithmName = "s1_adaptive"
	S1Ratio                AlgorithmName = "s1_ratio"
	S1Precise              AlgorithmName = "s1_precise"
	S1Nonlinear            AlgorithmName = "s1_nonlinear"
	S1Balanced             AlgorithmName = "s1_balanced"
	S1AdaptiveDistribution AlgorithmName = "s1_adaptive_distribution"
	S1Advanced             AlgorithmName = "s1_advanced"
	S1DynamicWaiting       AlgorithmName = "s1_dynamic_waiting"
	S2                     AlgorithmName = "s2"
	S2Enhanced             AlgorithmName = "s2_enhanced"
	S2Nonlinear            AlgorithmName = "s2_nonlinear"
	S2Adaptive             AlgorithmName = "s2_adaptive"
	S2Advanced             AlgorithmName = "s2_advanced"
	S2DynamicWaiting       AlgorithmName = "s2_dynamic_waiting"
)

// Weights is the parameter bag for an algorithm descriptor. Fields absent
// from config are defaulted by the scoring engine; the Has* flags record
// which optional parameters the config actually supplied.
type Weights struct {
	WA              float64
	WB              float64
	WG              float64 // only consumed by three-metric algorithms
	TransitionPoint float64 // only consumed by *_dynamic_waiting
	Steepness       float64 // only consumed by *_dynamic_waiting
	HasWG           bool
	HasTransitionPt bool
	HasSteepness    bool
}

// Algorithm is a pool's scoring algorithm descriptor: name plus weights.
type Algorithm struct {
	Name    AlgorithmName
	Weights Weights
}

// FallbackConfig is the per-pool fallback and threshold-filtering policy.
type FallbackConfig struct {
	PoolFallback                bool
	MemberRunningReqThreshold   *float64
	MemberWaitingQueueThreshold *float64
}

// MetricsEndpoint describes how to reach a member's metrics HTTP endpoint.
type MetricsEndpoint struct {
	Scheme       string
	OverridePort int // 0 means "use member's port"
	Path         string
	Timeout      time.Duration
	BearerKey    string
	BasicUser    string
	BasicPassEnv string
}

// Config is the immutable-identity + mutable-fields configuration of one
// pool, as loaded from config.yaml. (name, partition) is the pool's identity
// and never changes across a hot-reload; everything else may.
type Config struct {
	Name       string
	Partition  string
	EngineKind enginemap.Kind
	Metrics    MetricsEndpoint
	Algorithm  Algorithm
	Fallback   FallbackConfig
}

// Key returns the process-wide unique key "<partition>/<name>" for this config.
func (c Config) Key() string {
	return c.Partition + "/" + c.Name
}

// MetricSnapshot is a member's raw semantic metric readings.
type MetricSnapshot map[enginemap.Semantic]float64

// Member identifies a PoolMember within its pool.
type Member struct {
	IP   string
	Port int
}

// Addr renders the member as "ip:port", the wire form used by the LB.
func (m Member) Addr() string {
	return m.IP + ":" + strconv.Itoa(m.Port)
}

// MemberState is the mutable state tracked per pool member.
type MemberState struct {
	Member            Member
	Metrics           MetricSnapshot
	Score             float64
	Status            Status
	LastMetricsUpdate time.Time
	LastScoreUpdate   time.Time
}

// Snapshot returns a deep copy safe to hand to a caller outside the store's
// lock.
func (ms MemberState) Snapshot() MemberState {
	cp := ms
	if ms.Metrics != nil {
		cp.Metrics = make(MetricSnapshot, len(ms.Metrics))
		for k, v := range ms.Metrics {
			cp.Metrics[k] = v
		}
	}
	return cp
}
