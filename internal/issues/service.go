package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/types"
)

// ErrForbidden is returned when the identity may not read the namespace. It
// carries no detail about what exists there.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidSubmission marks a batch element whose shape is invalid. It stops
// the batch like any other element failure.
var ErrInvalidSubmission = errors.New("invalid issue submission")

// BatchError reports the batch element that stopped an ingestion. Elements
// before Index were stored.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string { return fmt.Sprintf("issue %d: %v", e.Index, e.Err) }
func (e *BatchError) Unwrap() error { return e.Err }

// Authorizer decides namespace read access.
type Authorizer interface {
	HasRights(ctx context.Context, namespace, subject string, groups []string) (bool, error)
}

// ObjectRegistry owns object identities.
type ObjectRegistry interface {
	RecordNamespacedObject(ctx context.Context, ref types.ObjectRef) (uuid.UUID, error)
	GetObjectsWithIssueCategoryInNamespace(ctx context.Context, category types.IssueCategory, namespace string) ([]types.NamespacedObject, error)
}

// IssueStore owns issue records.
type IssueStore interface {
	AddObjectIssue(ctx context.Context, issue types.Issue) error
	RefreshOrAddObjectIssue(ctx context.Context, issue types.Issue) error
	GetIssuesWithCategoryForNamespace(ctx context.Context, category types.IssueCategory, namespace string) ([]types.Issue, error)
}

// DedupPolicy selects what re-reporting a known finding does.
type DedupPolicy string

const (
	// DedupAppend stores every report as a new issue.
	DedupAppend DedupPolicy = "append"
	// DedupRefresh updates the issue with the same object, issue_tech_id and
	// category in place.
	DedupRefresh DedupPolicy = "refresh"
)

// ParseDedupPolicy returns the policy named by s. Empty means DedupAppend.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DedupAppend, nil
	case DedupAppend, DedupRefresh:
		return p, nil
	default:
		return "", fmt.Errorf("unknown issue dedup policy %q", s)
	}
}

// Config tunes a Service.
type Config struct {
	// ClusterName is used for submissions that omit the object's cluster.
	ClusterName string
	Dedup       DedupPolicy
}

// Service answers category queries for a namespace and ingests issue
// batches. It is safe for concurrent use.
type Service struct {
	authz   Authorizer
	objects ObjectRegistry
	store   IssueStore
	cfg     Config
	logger  *zap.Logger
}

// NewService wires the query service to its collaborators.
func NewService(authz Authorizer, objects ObjectRegistry, store IssueStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Dedup == "" {
		cfg.Dedup = DedupAppend
	}
	return &Service{
		authz:   authz,
		objects: objects,
		store:   store,
		cfg:     cfg,
		logger:  logger.Named("issues"),
	}
}

// ListObjectsWithIssues returns the namespace's objects carrying issues of
// the category. The authorization check runs first; on deny no storage query
// is made and ErrForbidden is returned. An empty result is not an error.
func (s *Service) ListObjectsWithIssues(ctx context.Context, category types.IssueCategory, namespace string, id types.Identity) ([]types.ObjectWithIssues, error) {
	start := time.Now()
	result := resultOK
	defer func() {
		issueQueryTotal.WithLabelValues(result).Inc()
		issueQueryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	allowed, err := s.authz.HasRights(ctx, namespace, id.Subject, id.Groups)
	if err != nil {
		result = resultAuthzError
		return nil, fmt.Errorf("authorize namespace read: %w", err)
	}
	if !allowed {
		result = resultDenied
		s.logger.Debug("Namespace read denied",
			zap.String("namespace", namespace),
			zap.String("subject", id.Subject),
		)
		return nil, ErrForbidden
	}

	objects, err := s.objects.GetObjectsWithIssueCategoryInNamespace(ctx, category, namespace)
	if err != nil {
		result = resultStorageError
		return nil, err
	}
	issues, err := s.store.GetIssuesWithCategoryForNamespace(ctx, category, namespace)
	if err != nil {
		result = resultStorageError
		return nil, err
	}

	return mergeObjectsWithIssues(objects, issues), nil
}

// mergeObjectsWithIssues attaches to each object the issues it owns. Objects
// referenced by no issue, as owner or link, are dropped; linked-only objects
// are kept with an empty issue list.
func mergeObjectsWithIssues(objects []types.NamespacedObject, issues []types.Issue) []types.ObjectWithIssues {
	owned := make(map[uuid.UUID][]types.Issue, len(objects))
	linked := make(map[uuid.UUID]bool)
	for _, issue := range issues {
		owned[issue.ObjectID] = append(owned[issue.ObjectID], issue)
		if issue.LinkedObjectID != nil {
			linked[*issue.LinkedObjectID] = true
		}
	}

	out := make([]types.ObjectWithIssues, 0, len(objects))
	for _, obj := range objects {
		list, ok := owned[obj.ID]
		if !ok {
			if !linked[obj.ID] {
				continue
			}
			list = []types.Issue{}
		}
		out = append(out, types.ObjectWithIssues{Metadata: obj, Issues: list})
	}
	return out
}

// StoreIssues registers each submission's object, then stores its issue, in
// submission order. The batch is not atomic: the first failure stops it,
// earlier elements stay stored, and a *BatchError names the failing element.
// It returns how many issues were stored.
func (s *Service) StoreIssues(ctx context.Context, batch []types.IssueSubmission) (int, error) {
	for i, sub := range batch {
		if err := s.storeOne(ctx, sub); err != nil {
			status := statusFailed
			if errors.Is(err, ErrInvalidSubmission) {
				status = statusInvalid
			}
			issueIngestTotal.WithLabelValues(status).Inc()
			s.logger.Error("Issue ingestion stopped",
				zap.Int("index", i),
				zap.Int("stored", i),
				zap.Int("batch_size", len(batch)),
				zap.String("object", sub.Object.String()),
				zap.Error(err),
			)
			return i, &BatchError{Index: i, Err: err}
		}
		issueIngestTotal.WithLabelValues(statusStored).Inc()
	}

	s.logger.Debug("Issue batch stored", zap.Int("count", len(batch)))
	return len(batch), nil
}

func (s *Service) storeOne(ctx context.Context, sub types.IssueSubmission) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubmission, err)
	}

	objectID, err := s.objects.RecordNamespacedObject(ctx, s.withCluster(sub.Object))
	if err != nil {
		return fmt.Errorf("register object %s: %w", sub.Object.String(), err)
	}

	linkedID := sub.LinkedObjectID
	if sub.LinkedObject != nil {
		id, err := s.objects.RecordNamespacedObject(ctx, s.withCluster(*sub.LinkedObject))
		if err != nil {
			return fmt.Errorf("register linked object %s: %w", sub.LinkedObject.String(), err)
		}
		linkedID = &id
	}

	issue := sub.Issue(objectID, linkedID)
	if s.cfg.Dedup == DedupRefresh {
		err = s.store.RefreshOrAddObjectIssue(ctx, issue)
	} else {
		err = s.store.AddObjectIssue(ctx, issue)
	}
	if err != nil {
		return fmt.Errorf("store issue: %w", err)
	}
	return nil
}

func (s *Service) withCluster(ref types.ObjectRef) types.ObjectRef {
	if strings.TrimSpace(ref.Cluster) == "" {
		ref.Cluster = s.cfg.ClusterName
	}
	return ref
}
