package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const rootBanner = "Coa API Service"

// readinessTimeout bounds the store ping behind the readiness probe.
const readinessTimeout = 2 * time.Second

// ClusterResponse is the wire format for GET /v1/cluster.
type ClusterResponse struct {
	Name string `json:"name"`
}

// NamespacesResponse is the wire format for GET /v1/namespaces.
type NamespacesResponse struct {
	Namespaces []string `json:"namespaces"`
}

// KubeNamespaces lists namespaces through the Kubernetes API.
type KubeNamespaces struct {
	client kubernetes.Interface
}

// NewKubeNamespaces creates a NamespaceLister backed by client.
func NewKubeNamespaces(client kubernetes.Interface) *KubeNamespaces {
	return &KubeNamespaces{client: client}
}

// ListNamespaces returns namespace names sorted alphabetically.
func (k *KubeNamespaces) ListNamespaces(ctx context.Context) ([]string, error) {
	list, err := k.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		names = append(names, ns.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ClusterHandler serves cluster-level informational endpoints and probes.
type ClusterHandler struct {
	name       string
	namespaces NamespaceLister
	store      Pinger
	logger     *zap.Logger
}

// NewClusterHandler creates a new ClusterHandler.
func NewClusterHandler(name string, namespaces NamespaceLister, store Pinger, logger *zap.Logger) *ClusterHandler {
	return &ClusterHandler{
		name:       name,
		namespaces: namespaces,
		store:      store,
		logger:     logger.Named("cluster"),
	}
}

// Root handles GET /.
func (h *ClusterHandler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(rootBanner))
}

// Cluster handles GET /v1/cluster.
func (h *ClusterHandler) Cluster(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, ClusterResponse{Name: h.name})
}

// Namespaces handles GET /v1/namespaces.
func (h *ClusterHandler) Namespaces(w http.ResponseWriter, r *http.Request) {
	if h.namespaces == nil {
		writeJSON(w, h.logger, http.StatusOK, NamespacesResponse{Namespaces: []string{}})
		return
	}
	names, err := h.namespaces.ListNamespaces(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, NamespacesResponse{Namespaces: names})
}

// Liveness handles GET /v1/health/liveness.
func (h *ClusterHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Readiness handles GET /v1/health/readiness. It fails while the store does
// not answer.
func (h *ClusterHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
