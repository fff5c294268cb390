// Package testutil provides shared test helpers for the coa project.
// Import this in test files to avoid duplicating database setup, object and
// issue builders, etc.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/nerzhul/coa/internal/db"
	"github.com/nerzhul/coa/internal/types"
)

// NewSQLiteDB opens a migrated SQLite database in a temp dir. It is closed
// when the test ends.
func NewSQLiteDB(t *testing.T) *db.Database {
	t.Helper()
	d, err := db.Open(context.Background(), db.Config{
		Driver:     db.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "coa_test.db"),
	}, zap.NewNop())
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// LoadBatch reads a YAML or JSON issue batch file.
// Fails the test immediately if the file can't be read or parsed.
func LoadBatch(t *testing.T, path string) []types.IssueSubmission {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to read fixture %s", path)
	var body struct {
		Issues []types.IssueSubmission `json:"issues"`
	}
	require.NoError(t, yaml.Unmarshal(data, &body), "failed to parse fixture %s", path)
	return body.Issues
}

// Ref builds an object reference without a cluster.
func Ref(ns, kind, name string) types.ObjectRef {
	return types.ObjectRef{Namespace: ns, ObjectType: kind, ObjectName: name}
}

// MakeSubmission creates a test IssueSubmission for the object with the given
// category and tech id. Severity is high, timestamps fixed.
func MakeSubmission(ns, kind, name string, cat types.IssueCategory, techID string) types.IssueSubmission {
	return types.IssueSubmission{
		Object:       Ref(ns, kind, name),
		Category:     cat,
		Severity:     types.IssueSeverityHigh,
		Details:      "Test issue " + techID,
		IssueTechID:  techID,
		IssueMessage: techID + " detected on " + name,
		ReportedBy:   "testutil",
		ReportedAt:   "2024-01-01T00:00:00Z",
		LastSeenAt:   "2024-01-01T00:00:00Z",
	}
}
