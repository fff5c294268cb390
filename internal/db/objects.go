package db

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/types"
)

// The no-op DO UPDATE makes RETURNING yield the existing row's id on conflict.
const upsertObjectSQL = `INSERT INTO namespaced_objects (id, cluster_name, namespace_name, object_type, object_name)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (cluster_name, namespace_name, object_type, object_name)
DO UPDATE SET cluster_name = excluded.cluster_name, updated_at = CURRENT_TIMESTAMP
RETURNING id`

// An object is listed when it owns, or is linked by, an issue of the category
// whose owner lives in the namespace.
const objectsWithCategorySQL = `SELECT o.id, o.cluster_name, o.namespace_name, o.object_type, o.object_name
FROM namespaced_objects o
WHERE o.namespace_name = ?
  AND (
    o.id IN (SELECT i.object_id FROM issues i WHERE i.category = ?)
    OR o.id IN (
      SELECT i.linked_object_id FROM issues i
      JOIN namespaced_objects owner ON owner.id = i.object_id
      WHERE i.category = ? AND owner.namespace_name = ? AND i.linked_object_id IS NOT NULL
    )
  )
ORDER BY o.object_type, o.object_name, o.cluster_name`

// RecordNamespacedObject registers the object if unseen and returns its id.
// Registering the same descriptor again returns the same id.
func (d *Database) RecordNamespacedObject(ctx context.Context, ref types.ObjectRef) (uuid.UUID, error) {
	if err := ref.Validate(); err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	row := d.gorm.WithContext(ctx).Raw(upsertObjectSQL,
		uuid.New(),
		ref.Cluster,
		strings.TrimSpace(ref.Namespace),
		strings.TrimSpace(ref.ObjectType),
		strings.TrimSpace(ref.ObjectName),
	).Row()
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, storageError("record namespaced object", err)
	}

	d.logger.Debug("Recorded namespaced object",
		zap.String("object", ref.String()),
		zap.String("id", id.String()),
	)
	return id, nil
}

// GetObjectsWithIssueCategoryInNamespace returns the namespace's objects that
// own or are linked by at least one issue of the category.
func (d *Database) GetObjectsWithIssueCategoryInNamespace(ctx context.Context, category types.IssueCategory, namespace string) ([]types.NamespacedObject, error) {
	var rows []namespacedObjectModel
	err := d.gorm.WithContext(ctx).
		Raw(objectsWithCategorySQL, namespace, category, category, namespace).
		Scan(&rows).Error
	if err != nil {
		return nil, storageError("get objects with issue category", err)
	}

	objects := make([]types.NamespacedObject, 0, len(rows))
	for _, r := range rows {
		objects = append(objects, r.toDomain())
	}
	return objects, nil
}
