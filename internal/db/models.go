package db

import (
	"github.com/google/uuid"

	"github.com/nerzhul/coa/internal/types"
)

type namespacedObjectModel struct {
	ID            uuid.UUID `gorm:"primaryKey;type:uuid"`
	ClusterName   string    `gorm:"not null"`
	NamespaceName string    `gorm:"not null;index"`
	ObjectType    string    `gorm:"not null"`
	ObjectName    string    `gorm:"not null"`
}

func (namespacedObjectModel) TableName() string { return "namespaced_objects" }

func (m namespacedObjectModel) toDomain() types.NamespacedObject {
	return types.NamespacedObject{
		ID:         m.ID,
		Cluster:    m.ClusterName,
		Namespace:  m.NamespaceName,
		ObjectType: m.ObjectType,
		ObjectName: m.ObjectName,
	}
}

type issueModel struct {
	ID             uint64              `gorm:"primaryKey;autoIncrement"`
	ObjectID       uuid.UUID           `gorm:"not null;type:uuid"`
	Category       types.IssueCategory `gorm:"not null;type:text"`
	Severity       types.IssueSeverity `gorm:"not null;type:text"`
	Details        string              `gorm:"not null"`
	IssueTechID    string              `gorm:"not null"`
	IssueMessage   string              `gorm:"not null"`
	ReportedBy     string              `gorm:"not null"`
	ReportedAt     string              `gorm:"not null"`
	LastSeenAt     string              `gorm:"not null"`
	LinkedObjectID uuid.NullUUID       `gorm:"type:uuid"`
}

func (issueModel) TableName() string { return "issues" }

func issueModelFrom(issue types.Issue) issueModel {
	m := issueModel{
		ObjectID:     issue.ObjectID,
		Category:     issue.Category,
		Severity:     issue.Severity,
		Details:      issue.Details,
		IssueTechID:  issue.IssueTechID,
		IssueMessage: issue.IssueMessage,
		ReportedBy:   issue.ReportedBy,
		ReportedAt:   issue.ReportedAt,
		LastSeenAt:   issue.LastSeenAt,
	}
	if issue.LinkedObjectID != nil {
		m.LinkedObjectID = uuid.NullUUID{UUID: *issue.LinkedObjectID, Valid: true}
	}
	return m
}

func (m issueModel) toDomain() types.Issue {
	issue := types.Issue{
		ObjectID:     m.ObjectID,
		Category:     m.Category,
		Severity:     m.Severity,
		Details:      m.Details,
		IssueTechID:  m.IssueTechID,
		IssueMessage: m.IssueMessage,
		ReportedBy:   m.ReportedBy,
		ReportedAt:   m.ReportedAt,
		LastSeenAt:   m.LastSeenAt,
	}
	if m.LinkedObjectID.Valid {
		linked := m.LinkedObjectID.UUID
		issue.LinkedObjectID = &linked
	}
	return issue
}
