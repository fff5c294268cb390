// Package config loads the API service configuration from flags and
// environment variables.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/nerzhul/coa/internal/authz"
	"github.com/nerzhul/coa/internal/db"
	"github.com/nerzhul/coa/internal/issues"
)

// Defaults.
const (
	DefaultAddr           = ":3000"
	DefaultRequestTimeout = 60000 * time.Millisecond
	DefaultClusterName    = "default"
	DefaultSQLitePath     = "coa.db"
	DefaultMetricsPath    = "/metrics"
)

// Config is the full service configuration.
type Config struct {
	Addr           string
	DB             db.Config
	RequestTimeout time.Duration
	Kubeconfig     string
	ClusterName    string
	IssueDedup     string
	IdentityMode   string
	LogLevel       string
	MetricsPath    string
}

// Load parses args with environment overrides. A set environment variable
// replaces the flag default; a flag given on the command line wins over
// both. Unparsable numeric environment values fall back to their default and
// are reported in warnings.
func Load(args []string, getenv func(string) string) (Config, []string, error) {
	var (
		cfg       Config
		warnings  []string
		timeoutMS int
	)
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	envInt := func(key string, def int) int {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("invalid %s %q, using %d", key, raw, def))
			return def
		}
		return v
	}

	fs := flag.NewFlagSet("apiservice", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", env("LISTEN_ADDR", DefaultAddr), "Address to listen on")
	fs.StringVar(&cfg.DB.Driver, "db-driver", env("DB_DRIVER", db.DriverPostgres), "Database driver (postgres or sqlite)")
	fs.StringVar(&cfg.DB.Host, "db-host", env("DB_HOST", "localhost"), "Database host")
	fs.IntVar(&cfg.DB.Port, "db-port", envInt("DB_PORT", 5432), "Database port")
	fs.StringVar(&cfg.DB.Name, "db-name", env("DB_NAME", ""), "Database name")
	fs.StringVar(&cfg.DB.User, "db-username", env("DB_USERNAME", ""), "Database user")
	fs.StringVar(&cfg.DB.SSLMode, "db-sslmode", env("DB_SSLMODE", "disable"), "PostgreSQL sslmode")
	fs.IntVar(&cfg.DB.PoolSize, "db-pool-size", envInt("DB_POOL_SIZE", db.DefaultPoolSize), "Maximum open database connections")
	fs.StringVar(&cfg.DB.SQLitePath, "sqlite-path", env("SQLITE_PATH", DefaultSQLitePath), "SQLite database file (sqlite driver only)")
	fs.IntVar(&timeoutMS, "request-timeout", envInt("REQUEST_TIMEOUT", int(DefaultRequestTimeout/time.Millisecond)), "Request timeout in milliseconds")
	fs.StringVar(&cfg.Kubeconfig, "kubeconfig", env("KUBECONFIG", ""), "Path to kubeconfig (in-cluster config when empty)")
	fs.StringVar(&cfg.ClusterName, "cluster-name", env("CLUSTER_NAME", DefaultClusterName), "Name of the cluster this service runs in")
	fs.StringVar(&cfg.IssueDedup, "issue-dedup", env("ISSUE_DEDUP", string(issues.DedupAppend)), "Re-reported issue handling (append or refresh)")
	fs.StringVar(&cfg.IdentityMode, "identity", env("IDENTITY_MODE", authz.IdentityStaticAdmin), "Request identity resolver")
	fs.StringVar(&cfg.LogLevel, "log-level", env("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.MetricsPath, "metrics-path", env("METRICS_PATH", DefaultMetricsPath), "Prometheus metrics path, empty to disable")
	if err := fs.Parse(args); err != nil {
		return Config{}, warnings, err
	}

	// The password is never taken from the command line.
	cfg.DB.Password = getenv("DB_PASSWORD")
	cfg.RequestTimeout = time.Duration(timeoutMS) * time.Millisecond

	return cfg, warnings, cfg.Validate()
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case db.DriverPostgres:
	case db.DriverSQLite:
		if c.DB.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required with the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DB.Driver))
	}
	if c.DB.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("database pool size must be at least 1, got %d", c.DB.PoolSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if _, err := issues.ParseDedupPolicy(c.IssueDedup); err != nil {
		errs = append(errs, err)
	}
	if _, err := authz.NewIdentityResolver(c.IdentityMode); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("metrics path must start with /, got %q", c.MetricsPath))
	}
	return errors.Join(errs...)
}

// Level is the parsed log level.
func (c Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}
