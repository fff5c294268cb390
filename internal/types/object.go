package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NamespacedObject is the registered identity of a workload artifact.
// (Cluster, Namespace, ObjectType, ObjectName) maps to exactly one ID.
type NamespacedObject struct {
	ID         uuid.UUID `json:"id"`
	Cluster    string    `json:"cluster"`
	Namespace  string    `json:"namespace"`
	ObjectType string    `json:"object_type"`
	ObjectName string    `json:"object_name"`
}

// ObjectRef describes an object before it has been registered.
type ObjectRef struct {
	Cluster    string `json:"cluster,omitempty"`
	Namespace  string `json:"namespace"`
	ObjectType string `json:"object_type"`
	ObjectName string `json:"object_name"`
}

// Validate reports missing identity fields. Cluster may be empty; callers
// fill it with the local cluster name before registering.
func (r ObjectRef) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Namespace) == "" {
		missing = append(missing, "namespace")
	}
	if strings.TrimSpace(r.ObjectType) == "" {
		missing = append(missing, "object_type")
	}
	if strings.TrimSpace(r.ObjectName) == "" {
		missing = append(missing, "object_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("object reference is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// String renders the reference as cluster/namespace/type/name.
func (r ObjectRef) String() string {
	return r.Cluster + "/" + r.Namespace + "/" + r.ObjectType + "/" + r.ObjectName
}

// Issue is one finding attached to a registered object.
type Issue struct {
	ObjectID       uuid.UUID     `json:"object_id"`
	Category       IssueCategory `json:"category"`
	Severity       IssueSeverity `json:"severity"`
	Details        string        `json:"details"`
	IssueTechID    string        `json:"issue_tech_id"`
	IssueMessage   string        `json:"issue_message"`
	ReportedBy     string        `json:"reported_by"`
	ReportedAt     string        `json:"reported_at"`
	LastSeenAt     string        `json:"last_seen_at"`
	LinkedObjectID *uuid.UUID    `json:"linked_object_id,omitempty"`
}

// ObjectWithIssues pairs an object with its issues of a single category.
type ObjectWithIssues struct {
	Metadata NamespacedObject `json:"metadata"`
	Issues   []Issue          `json:"issues"`
}

// IssueSubmission is one element of a bulk ingestion batch: the issue plus the
// descriptor of the object it is about. LinkedObject, when set, is registered
// like Object; otherwise LinkedObjectID is stored as given.
type IssueSubmission struct {
	Object         ObjectRef     `json:"object"`
	Category       IssueCategory `json:"category"`
	Severity       IssueSeverity `json:"severity"`
	Details        string        `json:"details"`
	IssueTechID    string        `json:"issue_tech_id"`
	IssueMessage   string        `json:"issue_message"`
	ReportedBy     string        `json:"reported_by"`
	ReportedAt     string        `json:"reported_at"`
	LastSeenAt     string        `json:"last_seen_at"`
	LinkedObject   *ObjectRef    `json:"linked_object,omitempty"`
	LinkedObjectID *uuid.UUID    `json:"linked_object_id,omitempty"`
}

// ErrLinkAmbiguous is returned when a submission sets both link forms.
var ErrLinkAmbiguous = errors.New("linked_object and linked_object_id are mutually exclusive")

// Validate checks the submission shape. Referential checks happen in storage.
func (s IssueSubmission) Validate() error {
	if err := s.Object.Validate(); err != nil {
		return err
	}
	if s.LinkedObject != nil {
		if s.LinkedObjectID != nil {
			return ErrLinkAmbiguous
		}
		if err := s.LinkedObject.Validate(); err != nil {
			return fmt.Errorf("linked object: %w", err)
		}
	}
	return nil
}

// Issue builds the stored record once the object ids are known.
func (s IssueSubmission) Issue(objectID uuid.UUID, linkedID *uuid.UUID) Issue {
	return Issue{
		ObjectID:       objectID,
		Category:       s.Category,
		Severity:       s.Severity,
		Details:        s.Details,
		IssueTechID:    s.IssueTechID,
		IssueMessage:   s.IssueMessage,
		ReportedBy:     s.ReportedBy,
		ReportedAt:     s.ReportedAt,
		LastSeenAt:     s.LastSeenAt,
		LinkedObjectID: linkedID,
	}
}

// Identity is the (subject, groups) pair a read is authorized for.
type Identity struct {
	Subject string
	Groups  []string
}
