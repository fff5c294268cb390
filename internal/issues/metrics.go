package issues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query results.
const (
	resultOK           = "ok"
	resultDenied       = "denied"
	resultAuthzError   = "authz_error"
	resultStorageError = "storage_error"
)

// Ingest statuses.
const (
	statusStored  = "stored"
	statusInvalid = "invalid"
	statusFailed  = "failed"
)

var (
	issueIngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coa_issue_ingest_total",
			Help: "Total submitted issues by ingestion status.",
		},
		[]string{"status"},
	)
	issueQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coa_issue_query_total",
			Help: "Total issue queries by result.",
		},
		[]string{"result"},
	)
	issueQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coa_issue_query_duration_seconds",
			Help:    "Duration of issue queries including the authorization check.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"result"},
	)
)
