package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/authz"
	"github.com/nerzhul/coa/internal/issues"
	"github.com/nerzhul/coa/internal/types"
)

// maxBatchBytes bounds a POST /v1/issues body.
const maxBatchBytes = 8 << 20

// IssuesResponse is the wire format for GET /v1/issues/{category}/{namespace}.
type IssuesResponse struct {
	Issues []types.ObjectWithIssues `json:"issues"`
}

// SubmitRequest is the wire format for POST /v1/issues.
type SubmitRequest struct {
	Issues []types.IssueSubmission `json:"issues"`
}

// SubmitResponse answers POST /v1/issues.
type SubmitResponse struct {
	Status string `json:"status"`
	Stored int    `json:"stored"`
}

// IssuesHandler serves the issue read and ingestion endpoints.
type IssuesHandler struct {
	service  IssueService
	identity authz.IdentityResolver
	logger   *zap.Logger
}

// NewIssuesHandler creates a new IssuesHandler.
func NewIssuesHandler(service IssueService, identity authz.IdentityResolver, logger *zap.Logger) *IssuesHandler {
	return &IssuesHandler{
		service:  service,
		identity: identity,
		logger:   logger.Named("issues"),
	}
}

// List handles GET /v1/issues/{category}/{namespace}.
func (h *IssuesHandler) List(w http.ResponseWriter, r *http.Request) {
	category, err := types.ParseIssueCategory(chi.URLParam(r, "category"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	namespace := chi.URLParam(r, "namespace")

	id, err := h.identity.Resolve(r)
	if err != nil {
		h.logger.Warn("Identity resolution failed", zap.Error(err))
		http.Error(w, bodyForbidden, http.StatusForbidden)
		return
	}

	objects, err := h.service.ListObjectsWithIssues(r.Context(), category, namespace, id)
	if err != nil {
		writeError(w, h.logger.With(
			zap.String("namespace", namespace),
			zap.Stringer("category", category),
			zap.String("subject", id.Subject),
		), err)
		return
	}
	if objects == nil {
		objects = []types.ObjectWithIssues{}
	}
	writeJSON(w, h.logger, http.StatusOK, IssuesResponse{Issues: objects})
}

// Submit handles POST /v1/issues. Ingestion is not authorization-gated.
// Elements are stored in order until one fails; that element and the rest are
// dropped and the response is a 500 carrying the stored count.
func (h *IssuesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if id, err := h.identity.Resolve(r); err == nil {
		h.logger.Debug("Issue batch received",
			zap.String("subject", id.Subject),
			zap.Int("size", len(req.Issues)),
		)
	}

	stored, err := h.service.StoreIssues(r.Context(), req.Issues)
	if err != nil {
		logger := h.logger.With(zap.Int("stored", stored))
		var be *issues.BatchError
		if errors.As(err, &be) {
			logger = logger.With(zap.Int("failed_index", be.Index))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Issue ingestion timed out", zap.Error(err))
			http.Error(w, bodyRequestTimeout, http.StatusRequestTimeout)
			return
		}
		logger.Error("Issue ingestion failed", zap.Error(err))
		writeJSON(w, h.logger, http.StatusInternalServerError, SubmitResponse{Status: "error", Stored: stored})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, SubmitResponse{Status: "OK", Stored: stored})
}
