package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/authz"
)

// NewRouter builds the HTTP surface over c.
func NewRouter(c Context) http.Handler {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("api")
	identity := c.Identity
	if identity == nil {
		identity = authz.AdminIdentity()
	}

	issuesHandler := NewIssuesHandler(c.Issues, identity, logger)
	clusterHandler := NewClusterHandler(c.ClusterName, c.Namespaces, c.Store, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", clusterHandler.Root)
	if c.MetricsPath != "" {
		r.Handle(c.MetricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/health/liveness", clusterHandler.Liveness)
		v1.Get("/health/readiness", clusterHandler.Readiness)

		v1.Group(func(g chi.Router) {
			g.Use(requestTimeout(c.RequestTimeout))
			g.Get("/cluster", clusterHandler.Cluster)
			g.Get("/namespaces", clusterHandler.Namespaces)
			g.Get("/issues/{category}/{namespace}", issuesHandler.List)
			g.Post("/issues", issuesHandler.Submit)
		})
	})

	return r
}
