package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/nerzhul/coa/internal/api"
	"github.com/nerzhul/coa/internal/authz"
	"github.com/nerzhul/coa/internal/config"
	"github.com/nerzhul/coa/internal/db"
	"github.com/nerzhul/coa/internal/issues"
)

func main() {
	cfg, warnings, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, w := range warnings {
		logger.Warn("Configuration fallback", zap.String("detail", w))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logConfig := zap.NewProductionConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

// run contains the main application logic, separated from main() for testability.
func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting Coa API service",
		zap.String("addr", cfg.Addr),
		zap.String("cluster", cfg.ClusterName),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("issue_dedup", cfg.IssueDedup),
	)

	restConfig, err := kubeConfig(cfg.Kubeconfig)
	if err != nil {
		return err
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.Open(ctx, cfg.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	return startServer(ctx, cfg, clientset, database, logger)
}

func kubeConfig(path string) (*rest.Config, error) {
	if path == "" {
		c, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get in-cluster config (set KUBECONFIG outside a cluster): %w", err)
		}
		return c, nil
	}
	c, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig %s: %w", path, err)
	}
	return c, nil
}

// startServer wires the query service and HTTP router over an open database
// and blocks until ctx is cancelled. Extracted from run() to allow testing
// with a fake clientset.
func startServer(ctx context.Context, cfg config.Config, clientset kubernetes.Interface, database *db.Database, logger *zap.Logger) error {
	dedup, err := issues.ParseDedupPolicy(cfg.IssueDedup)
	if err != nil {
		return err
	}
	identity, err := authz.NewIdentityResolver(cfg.IdentityMode)
	if err != nil {
		return err
	}
	if cfg.IdentityMode == authz.IdentityStaticAdmin {
		logger.Warn("Every request acts as the static admin identity; do not expose this service outside development")
	}

	gate := authz.NewGate(clientset, logger)
	service := issues.NewService(gate, database, database, issues.Config{
		ClusterName: cfg.ClusterName,
		Dedup:       dedup,
	}, logger)

	handler := api.NewRouter(api.Context{
		Issues:         service,
		Namespaces:     api.NewKubeNamespaces(clientset),
		Store:          database,
		Identity:       identity,
		ClusterName:    cfg.ClusterName,
		RequestTimeout: cfg.RequestTimeout,
		MetricsPath:    cfg.MetricsPath,
		Logger:         logger,
	})

	server := NewServer(ServerConfig{Addr: cfg.Addr}, handler, logger)
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("API server stopped")
	return nil
}
