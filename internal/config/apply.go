package config

import (
	"log/slog"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
)

// ResolvePoolConfigs converts every pool entry in f into a pool.Config,
// resolving its mode's weights and its metrics endpoint's secrets. A pool
// whose secret is currently unresolvable is skipped and logged rather than
// failing the whole reload. ApplyConfigDiff removes every pool absent from
// its input, so Watcher.reload passes such a pool's current configuration
// back in unchanged to leave it in place.
func ResolvePoolConfigs(f *File) []pool.Config {
	modes := make(map[string]ModeConfig, len(f.Modes))
	for _, m := range f.Modes {
		modes[m.Name] = m
	}

	out := make([]pool.Config, 0, len(f.Pools))
	for _, pc := range f.Pools {
		cfg, err := resolveOne(pc, modes)
		if err != nil {
			slog.Error("skipping pool this reload: secret resolution failed",
				"pool", pc.Key(), "error", err)
			continue
		}
		out = append(out, cfg)
	}
	return out
}

func resolveOne(pc PoolConfig, modes map[string]ModeConfig) (pool.Config, error) {
	mode := modes[pc.ModeName]

	// Resolved only to validate the secret is currently present; the env
	// var name (not its value) is stored on pool.Config, and the collector
	// re-reads the env var at scrape time rather than caching the secret
	// in shared state.
	if _, err := resolveMetricAuth(pc.Metrics); err != nil {
		return pool.Config{}, err
	}

	timeout := time.Duration(pc.Metrics.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultMetricsTimeout
	}

	return pool.Config{
		Name:       pc.Name,
		Partition:  pc.Partition,
		EngineKind: enginemap.Kind(pc.EngineType),
		Metrics: pool.MetricsEndpoint{
			Scheme:       pc.Metrics.Schema,
			OverridePort: pc.Metrics.Port,
			Path:         pc.Metrics.Path,
			Timeout:      timeout,
			BearerKey:    pc.Metrics.APIKey,
			BasicUser:    pc.Metrics.MetricUser,
			BasicPassEnv: pc.Metrics.MetricPwdEnv,
		},
		Algorithm: pool.Algorithm{
			Name:    pool.AlgorithmName(mode.Name),
			Weights: weightsFromMode(mode),
		},
		Fallback: pool.FallbackConfig{
			PoolFallback:                pc.Fallback.PoolFallback,
			MemberRunningReqThreshold:   pc.Fallback.MemberRunningReqThreshold,
			MemberWaitingQueueThreshold: pc.Fallback.MemberWaitingQueueThreshold,
		},
	}, nil
}

func weightsFromMode(m ModeConfig) pool.Weights {
	w := pool.Weights{WA: m.WA, WB: m.WB}
	if m.WG != nil {
		w.WG = *m.WG
		w.HasWG = true
	}
	if m.TransitionPoint != nil {
		w.TransitionPoint = *m.TransitionPoint
		w.HasTransitionPt = true
	}
	if m.Steepness != nil {
		w.Steepness = *m.Steepness
		w.HasSteepness = true
	}
	return w
}
