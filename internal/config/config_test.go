package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/nerzhul/coa/internal/db"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, warnings, err := Load(nil, envMap(nil))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 10, cfg.DB.PoolSize)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "default", cfg.ClusterName)
	assert.Equal(t, "append", cfg.IssueDedup)
	assert.Equal(t, "static-admin", cfg.IdentityMode)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	cfg, warnings, err := Load(nil, envMap(map[string]string{
		"DB_HOST":         "pg.internal",
		"DB_NAME":         "coa",
		"DB_USERNAME":     "coa",
		"DB_PASSWORD":     "s3cret",
		"DB_POOL_SIZE":    "25",
		"REQUEST_TIMEOUT": "1500",
		"CLUSTER_NAME":    "edge-1",
		"ISSUE_DEDUP":     "refresh",
		"KUBECONFIG":      "/etc/kube/config",
	}))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "pg.internal", cfg.DB.Host)
	assert.Equal(t, "coa", cfg.DB.Name)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, 25, cfg.DB.PoolSize)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "edge-1", cfg.ClusterName)
	assert.Equal(t, "refresh", cfg.IssueDedup)
	assert.Equal(t, "/etc/kube/config", cfg.Kubeconfig)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	cfg, _, err := Load([]string{"--db-pool-size", "3", "--cluster-name", "flag"}, envMap(map[string]string{
		"DB_POOL_SIZE": "25",
		"CLUSTER_NAME": "env",
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.DB.PoolSize)
	assert.Equal(t, "flag", cfg.ClusterName)
}

func TestLoad_UnparsableNumbersFallBack(t *testing.T) {
	cfg, warnings, err := Load(nil, envMap(map[string]string{
		"DB_POOL_SIZE":    "lots",
		"REQUEST_TIMEOUT": "1m",
	}))
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	assert.Equal(t, 10, cfg.DB.PoolSize)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"driver":   {"DB_DRIVER": "mysql"},
		"pool":     {"DB_POOL_SIZE": "0"},
		"timeout":  {"REQUEST_TIMEOUT": "-1"},
		"dedup":    {"ISSUE_DEDUP": "upsert"},
		"identity": {"IDENTITY_MODE": "oidc"},
		"level":    {"LOG_LEVEL": "loud"},
		"metrics":  {"METRICS_PATH": "metrics"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(nil, envMap(env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_SQLite(t *testing.T) {
	cfg, _, err := Load([]string{"--db-driver", "sqlite", "--sqlite-path", "/tmp/coa.db", "--log-level", "debug"}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "/tmp/coa.db", cfg.DB.SQLitePath)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)
}

func TestLoad_UnknownFlag(t *testing.T) {
	_, _, err := Load([]string{"--nope"}, envMap(nil))
	assert.Error(t, err)
}
