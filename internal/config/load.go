package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/f5devcentral/llm-inference-lb/internal/enginemap"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
	"github.com/f5devcentral/llm-inference-lb/internal/scoring"
)

// defaultAPIPort, defaultPoolFetchInterval, defaultMetricsFetchInterval,
// defaultConfigPollInterval are applied when config.yaml leaves the
// corresponding global/scheduler field at its zero value.
const (
	defaultAPIPort              = 8080
	defaultPoolFetchInterval    = 30  // seconds
	defaultMetricsFetchInterval = 500 // milliseconds
	defaultConfigPollInterval   = 10  // seconds
	defaultMetricsTimeout       = 5 * time.Second
)

// Load reads and parses path as a config.File, applying defaults for
// omitted global/scheduler fields, then validates it. A malformed or
// invalid file is fatal at startup and a logged no-op during hot-reload.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	f.applyDefaults()
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return &f, nil
}

func (f *File) applyDefaults() {
	if f.Global.APIHost == "" {
		f.Global.APIHost = "0.0.0.0"
	}
	if f.Global.APIPort == 0 {
		f.Global.APIPort = defaultAPIPort
	}
	if f.Global.LogLevel == "" {
		f.Global.LogLevel = "info"
	}
	if f.Global.Interval <= 0 {
		f.Global.Interval = defaultConfigPollInterval
	}
	if f.Scheduler.PoolFetchInterval <= 0 {
		f.Scheduler.PoolFetchInterval = defaultPoolFetchInterval
	}
	if f.Scheduler.MetricsFetchInterval <= 0 {
		f.Scheduler.MetricsFetchInterval = defaultMetricsFetchInterval
	}
}

// Validate checks config.yaml for internal consistency: required fields,
// duplicate identities, recognized engine kinds and algorithm names. It
// does not resolve env-var secrets — that happens per-pool at apply time
// (see secrets.go) so a pool with a missing secret fails its own reload
// rather than the whole file.
func (f *File) Validate() error {
	if f.F5.Host == "" {
		return fmt.Errorf("f5.host is required")
	}
	if f.F5.Username == "" {
		return fmt.Errorf("f5.username is required")
	}
	if f.F5.PasswordEnv == "" {
		return fmt.Errorf("f5.password_env is required")
	}

	modes := make(map[string]ModeConfig, len(f.Modes))
	for i, m := range f.Modes {
		if m.Name == "" {
			return fmt.Errorf("modes[%d] has empty name", i)
		}
		if _, dup := modes[m.Name]; dup {
			return fmt.Errorf("duplicate mode name %q", m.Name)
		}
		modes[m.Name] = m
	}

	seen := make(map[string]bool, len(f.Pools))
	for i, p := range f.Pools {
		if p.Name == "" || p.Partition == "" {
			return fmt.Errorf("pools[%d] requires both name and partition", i)
		}
		key := p.Key()
		if seen[key] {
			return fmt.Errorf("duplicate pool (partition=%s, name=%s)", p.Partition, p.Name)
		}
		seen[key] = true

		if !enginemap.Valid(enginemap.Kind(p.EngineType)) {
			return fmt.Errorf("pool %s: unrecognized engine_type %q", key, p.EngineType)
		}
		if p.Metrics.Path == "" {
			return fmt.Errorf("pool %s: metrics.path is required", key)
		}
		if p.Metrics.Schema != "http" && p.Metrics.Schema != "https" {
			return fmt.Errorf("pool %s: metrics.schema must be http or https", key)
		}

		if p.ModeName == "" {
			return fmt.Errorf("pool %s: mode_name is required", key)
		}
		mode, ok := modes[p.ModeName]
		if !ok {
			return fmt.Errorf("pool %s: mode_name %q not declared in modes", key, p.ModeName)
		}
		algoName := pool.AlgorithmName(mode.Name)
		if !scoring.Recognized(algoName) {
			return fmt.Errorf("pool %s: mode %q is not a recognized algorithm", key, mode.Name)
		}
	}
	return nil
}
