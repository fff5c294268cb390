package db

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nerzhul/coa/internal/types"
)

// AddObjectIssue appends the issue. The owning object, and the linked object
// when set, must already be registered or ErrReferentialIntegrity is
// returned wrapped in a StorageError.
func (d *Database) AddObjectIssue(ctx context.Context, issue types.Issue) error {
	m := issueModelFrom(issue)
	if err := d.gorm.WithContext(ctx).Create(&m).Error; err != nil {
		return storageError("add object issue", err)
	}
	d.logger.Debug("Stored issue",
		zap.String("object_id", issue.ObjectID.String()),
		zap.Stringer("category", issue.Category),
		zap.String("issue_tech_id", issue.IssueTechID),
	)
	return nil
}

// RefreshOrAddObjectIssue updates the issue already stored for the same
// object, issue_tech_id and category, or appends it when none exists.
// Issues without a tech id have no identity and are always appended.
func (d *Database) RefreshOrAddObjectIssue(ctx context.Context, issue types.Issue) error {
	if issue.IssueTechID == "" {
		return d.AddObjectIssue(ctx, issue)
	}

	m := issueModelFrom(issue)
	err := d.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&issueModel{}).
			Where("object_id = ? AND issue_tech_id = ? AND category = ?", m.ObjectID, m.IssueTechID, m.Category).
			Updates(map[string]interface{}{
				"severity":         m.Severity,
				"details":          m.Details,
				"issue_message":    m.IssueMessage,
				"reported_by":      m.ReportedBy,
				"last_seen_at":     m.LastSeenAt,
				"linked_object_id": m.LinkedObjectID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&m).Error
	})
	if err != nil {
		return storageError("refresh object issue", err)
	}
	return nil
}

// GetIssuesWithCategoryForNamespace returns every issue of the category whose
// owning object lives in the namespace, in insertion order.
func (d *Database) GetIssuesWithCategoryForNamespace(ctx context.Context, category types.IssueCategory, namespace string) ([]types.Issue, error) {
	owners := d.gorm.Model(&namespacedObjectModel{}).
		Select("id").
		Where("namespace_name = ?", namespace)

	var rows []issueModel
	err := d.gorm.WithContext(ctx).
		Where("category = ? AND object_id IN (?)", category, owners).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, storageError("get issues with category", err)
	}

	issues := make([]types.Issue, 0, len(rows))
	for _, r := range rows {
		issues = append(issues, r.toDomain())
	}
	return issues, nil
}
