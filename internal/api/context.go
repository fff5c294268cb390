package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/authz"
	"github.com/nerzhul/coa/internal/types"
)

// IssueService is the query service the issue handlers delegate to.
type IssueService interface {
	ListObjectsWithIssues(ctx context.Context, category types.IssueCategory, namespace string, id types.Identity) ([]types.ObjectWithIssues, error)
	StoreIssues(ctx context.Context, batch []types.IssueSubmission) (int, error)
}

// NamespaceLister lists the cluster's namespace names.
type NamespaceLister interface {
	ListNamespaces(ctx context.Context) ([]string, error)
}

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Context is everything request handlers need. It is built once at startup
// and shared read-only by every request.
type Context struct {
	Issues     IssueService
	Namespaces NamespaceLister
	Store      Pinger
	Identity   authz.IdentityResolver

	// ClusterName is reported by GET /v1/cluster.
	ClusterName string

	// RequestTimeout bounds each request. Zero disables the bound.
	RequestTimeout time.Duration

	// MetricsPath serves Prometheus metrics when non-empty.
	MetricsPath string

	Logger *zap.Logger
}
