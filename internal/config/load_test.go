package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
global:
  interval: 10
  api_host: "0.0.0.0"
  api_port: 8080
  log_level: info
f5:
  host: ltm.example.com
  port: 443
  username: admin
  password_env: F5_PASSWORD
scheduler:
  pool_fetch_interval: 30
  metrics_fetch_interval: 500
modes:
  - name: s1
    w_a: 0.5
    w_b: 0.5
  - name: s2_dynamic_waiting
    w_a: 0.4
    w_b: 0.3
    w_g: 0.3
    transition_point: 30
    steepness: 1.0
pools:
  - name: llama3-70b
    partition: prod
    engine_type: VLLM
    mode_name: s1
    fallback:
      pool_fallback: false
    metrics:
      schema: http
      path: /metrics
      timeout: 5
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	f, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Pools) != 1 {
		t.Fatalf("expected 1 pool, got %d", len(f.Pools))
	}
	if f.Pools[0].Key() != "prod/llama3-70b" {
		t.Errorf("unexpected pool key: %s", f.Pools[0].Key())
	}
}

func TestLoadRejectsUnknownEngineType(t *testing.T) {
	bad := sampleYAML
	bad = replaceOnce(bad, "engine_type: VLLM", "engine_type: BOGUS")
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized engine_type")
	}
}

func TestLoadRejectsUnrecognizedAlgorithm(t *testing.T) {
	bad := sampleYAML
	bad = replaceOnce(bad, "name: s1\n", "name: not_an_algorithm\n")
	bad = replaceOnce(bad, "mode_name: s1", "mode_name: not_an_algorithm")
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unrecognized algorithm name")
	}
}

func TestLoadRejectsMissingF5Credentials(t *testing.T) {
	bad := replaceOnce(sampleYAML, "password_env: F5_PASSWORD", "")
	path := writeTemp(t, bad)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when f5.password_env is missing")
	}
}

func TestLoadRejectsDuplicatePools(t *testing.T) {
	dup := sampleYAML + `
  - name: llama3-70b
    partition: prod
    engine_type: VLLM
    mode_name: s1
    metrics:
      schema: http
      path: /metrics
`
	path := writeTemp(t, dup)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for duplicate (partition, name)")
	}
}

func TestResolveF5CredentialsRequiresEnvVar(t *testing.T) {
	os.Unsetenv("F5_PASSWORD_TEST_MISSING")
	_, err := ResolveF5Credentials(F5Config{Username: "admin", PasswordEnv: "F5_PASSWORD_TEST_MISSING"})
	if err == nil {
		t.Fatal("expected an error when the env var is unset")
	}

	os.Setenv("F5_PASSWORD_TEST_MISSING", "secret")
	defer os.Unsetenv("F5_PASSWORD_TEST_MISSING")
	creds, err := ResolveF5Credentials(F5Config{Username: "admin", PasswordEnv: "F5_PASSWORD_TEST_MISSING"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if creds.Password != "secret" {
		t.Errorf("expected resolved password, got %q", creds.Password)
	}
}

func TestResolvePoolConfigsSkipsPoolWithMissingMetricSecret(t *testing.T) {
	f := &File{
		Modes: []ModeConfig{{Name: "s1", WA: 0.5, WB: 0.5}},
		Pools: []PoolConfig{
			{
				Name: "needs-secret", Partition: "prod", EngineType: "VLLM", ModeName: "s1",
				Metrics: MetricsCfg{Schema: "http", Path: "/metrics", MetricUser: "svc", MetricPwdEnv: "MISSING_ENV_VAR_XYZ"},
			},
		},
	}
	cfgs := ResolvePoolConfigs(f)
	if len(cfgs) != 0 {
		t.Fatalf("expected the pool to be skipped, got %d configs", len(cfgs))
	}
}

func replaceOnce(s, old, new string) string {
	return strings.Replace(s, old, new, 1)
}
