// Package enginemap holds the closed table of per-engine-kind metric names
// that realize the semantic quantities the scoring engine consumes.
package enginemap

import "fmt"

// Kind identifies a supported inference engine implementation.
type Kind string

const (
	VLLM   Kind = "VLLM"
	SGLANG Kind = "SGLANG"
)

// Semantic is one of the three quantities the score engine normalizes over.
type Semantic string

const (
	WaitingQueue Semantic = "waiting_queue"
	CacheUsage   Semantic = "cache_usage"
	RunningReq   Semantic = "running_req"
)

// mapping is the closed engine -> semantic -> raw Prometheus metric name table.
var mapping = map[Kind]map[Semantic]string{
	VLLM: {
		WaitingQueue: "vllm:num_requests_waiting",
		CacheUsage:   "vllm:gpu_cache_usage_perc",
		RunningReq:   "vllm:num_requests_running",
	},
	SGLANG: {
		WaitingQueue: "sglang:num_queue_reqs",
		CacheUsage:   "sglang:token_usage",
		RunningReq:   "sglang:num_running_reqs",
	},
}

// Valid reports whether kind is a recognized engine kind.
func Valid(kind Kind) bool {
	_, ok := mapping[kind]
	return ok
}

// MetricName returns the raw Prometheus metric name that realizes the given
// semantic quantity for the given engine kind.
func MetricName(kind Kind, sem Semantic) (string, error) {
	m, ok := mapping[kind]
	if !ok {
		return "", fmt.Errorf("enginemap: unknown engine kind %q", kind)
	}
	name, ok := m[sem]
	if !ok {
		return "", fmt.Errorf("enginemap: engine kind %q has no mapping for %q", kind, sem)
	}
	return name, nil
}

// Semantics returns the full semantic->raw-name table for kind, or nil if
// kind is unrecognized.
func Semantics(kind Kind) map[Semantic]string {
	m, ok := mapping[kind]
	if !ok {
		return nil
	}
	out := make(map[Semantic]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RawNameToSemantic builds the inverse lookup (raw metric name -> semantic)
// for a given engine kind, used by the collector when scanning a scrape body.
func RawNameToSemantic(kind Kind) map[string]Semantic {
	m, ok := mapping[kind]
	if !ok {
		return nil
	}
	out := make(map[string]Semantic, len(m))
	for sem, raw := range m {
		out[raw] = sem
	}
	return out
}
