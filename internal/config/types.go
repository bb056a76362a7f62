// Package config loads, validates, and hot-reloads the sidecar's YAML
// configuration, resolves its env-var secrets, and diffs it against the
// live pool.Store on change.
package config

// File is the top-level shape of config.yaml.
type File struct {
	Global    GlobalConfig  `yaml:"global"`
	F5        F5Config      `yaml:"f5"`
	Scheduler SchedulerCfg  `yaml:"scheduler"`
	Modes     []ModeConfig  `yaml:"modes"`
	Pools     []PoolConfig  `yaml:"pools"`
}

// GlobalConfig carries process-wide settings.
type GlobalConfig struct {
	Interval int    `yaml:"interval"` // seconds; config-file poll/resync period
	APIHost  string `yaml:"api_host"`
	APIPort  int    `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`
}

// F5Config is the LTM control API's connection and credential info.
type F5Config struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// SchedulerCfg carries the two data-plane poll intervals.
type SchedulerCfg struct {
	PoolFetchInterval    int `yaml:"pool_fetch_interval"`    // seconds
	MetricsFetchInterval int `yaml:"metrics_fetch_interval"` // milliseconds
}

// ModeConfig is one named, reusable algorithm descriptor. Pools reference
// a mode by name.
type ModeConfig struct {
	Name            string   `yaml:"name"`
	WA              float64  `yaml:"w_a"`
	WB              float64  `yaml:"w_b"`
	WG              *float64 `yaml:"w_g"`
	TransitionPoint *float64 `yaml:"transition_point"`
	Steepness       *float64 `yaml:"steepness"`
}

// FallbackCfg is a pool's fallback gate and threshold-filtering policy.
type FallbackCfg struct {
	PoolFallback                bool     `yaml:"pool_fallback"`
	MemberRunningReqThreshold   *float64 `yaml:"member_running_req_threshold"`
	MemberWaitingQueueThreshold *float64 `yaml:"member_waiting_queue_threshold"`
}

// MetricsCfg describes how to reach a pool's members' metrics endpoints.
type MetricsCfg struct {
	Schema       string `yaml:"schema"`
	Port         int    `yaml:"port"` // 0 means "use member's port"
	Path         string `yaml:"path"`
	TimeoutSec   int    `yaml:"timeout"`
	APIKey       string `yaml:"APIkey"`
	MetricUser   string `yaml:"metric_user"`
	MetricPwdEnv string `yaml:"metric_pwd_env"`
}

// PoolConfig is one pool's entry in config.yaml.
type PoolConfig struct {
	Name       string      `yaml:"name"`
	Partition  string      `yaml:"partition"`
	EngineType string      `yaml:"engine_type"`
	Fallback   FallbackCfg `yaml:"fallback"`
	Metrics    MetricsCfg  `yaml:"metrics"`
	ModeName   string      `yaml:"mode_name"`
}

// Key mirrors pool.Config.Key's "<partition>/<name>" identity, used before
// the YAML entry has been converted into a pool.Config.
func (p PoolConfig) Key() string {
	return p.Partition + "/" + p.Name
}
