package config

import (
	"fmt"
	"os"
)

// F5Credentials is the resolved LTM username/password, read from the
// environment at startup. Missing required secrets are startup errors.
type F5Credentials struct {
	Username string
	Password string
}

// ResolveF5Credentials reads the LTM password from f5.password_env. Called
// once at startup; failure here is fatal, not a per-pool reload failure.
func ResolveF5Credentials(f5 F5Config) (F5Credentials, error) {
	pass, ok := os.LookupEnv(f5.PasswordEnv)
	if !ok || pass == "" {
		return F5Credentials{}, fmt.Errorf("required secret env var %q (f5.password_env) is unset", f5.PasswordEnv)
	}
	return F5Credentials{Username: f5.Username, Password: pass}, nil
}

// resolveMetricAuth reads a pool's metrics basic-auth password from its
// metric_pwd_env, if basic auth is configured. Called at config-apply time
// (startup and every hot-reload), so a transiently-missing secret fails
// only this pool's (re)load, never the whole process.
func resolveMetricAuth(m MetricsCfg) (pass string, err error) {
	if m.MetricUser == "" {
		return "", nil
	}
	if m.MetricPwdEnv == "" {
		return "", fmt.Errorf("metrics.metric_user set without metrics.metric_pwd_env")
	}
	pass, ok := os.LookupEnv(m.MetricPwdEnv)
	if !ok || pass == "" {
		return "", fmt.Errorf("required secret env var %q (metrics.metric_pwd_env) is unset", m.MetricPwdEnv)
	}
	return pass, nil
}
