package authz

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	authorizationv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// The representative permission: reading pods in a namespace grants reading
// its issues.
const (
	reviewVerb     = "get"
	reviewResource = "pods"
	reviewGroup    = ""
	reviewVersion  = "v1"
)

// BackendError reports that the SubjectAccessReview call itself failed. It is
// distinct from a deny verdict.
type BackendError struct {
	Namespace string
	Subject   string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("subject access review for %q in namespace %q: %v", e.Subject, e.Namespace, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Gate answers namespace read permission questions through the cluster's
// SubjectAccessReview API. It holds no per-request state.
type Gate struct {
	client kubernetes.Interface
	logger *zap.Logger
}

// NewGate creates a Gate backed by client.
func NewGate(client kubernetes.Interface, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{client: client, logger: logger.Named("authz")}
}

// HasRights reports whether subject, member of groups, may get pods in
// namespace. A false result with a nil error is a legitimate deny.
func (g *Gate) HasRights(ctx context.Context, namespace, subject string, groups []string) (bool, error) {
	review := &authorizationv1.SubjectAccessReview{
		Spec: authorizationv1.SubjectAccessReviewSpec{
			ResourceAttributes: &authorizationv1.ResourceAttributes{
				Namespace: namespace,
				Verb:      reviewVerb,
				Group:     reviewGroup,
				Version:   reviewVersion,
				Resource:  reviewResource,
			},
			User:   subject,
			Groups: groups,
		},
	}

	result, err := g.client.AuthorizationV1().SubjectAccessReviews().Create(ctx, review, metav1.CreateOptions{})
	if err != nil {
		g.logger.Error("SubjectAccessReview failed",
			zap.String("namespace", namespace),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return false, &BackendError{Namespace: namespace, Subject: subject, Err: err}
	}

	allowed := result.Status.Allowed && !result.Status.Denied
	g.logger.Debug("SubjectAccessReview verdict",
		zap.String("namespace", namespace),
		zap.String("subject", subject),
		zap.Bool("allowed", allowed),
		zap.String("reason", result.Status.Reason),
	)
	return allowed, nil
}
