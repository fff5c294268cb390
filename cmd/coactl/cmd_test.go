package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	authorizationv1 "k8s.io/api/authorization/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/nerzhul/coa/internal/api"
	"github.com/nerzhul/coa/internal/authz"
	"github.com/nerzhul/coa/internal/issues"
	"github.com/nerzhul/coa/internal/testutil"
)

const batchYAML = `issues:
  - object: {namespace: team-alpha, object_type: Deployment, object_name: api}
    category: security
    severity: critical
    issue_tech_id: CVE-2024-1
    issue_message: vulnerable openssl
    reported_by: trivy
    reported_at: "2024-03-01T10:00:00Z"
    last_seen_at: "2024-03-01T10:00:00Z"
  - object: {namespace: team-alpha, object_type: Deployment, object_name: web}
    category: reliability
    severity: low
    issue_tech_id: no-probe
    issue_message: no readiness probe
    reported_by: kubekitty
    reported_at: "2024-03-01T10:00:00Z"
    last_seen_at: "2024-03-01T10:00:00Z"
`

// startAPI serves the real router over SQLite, with every access review allowed.
func startAPI(t *testing.T) string {
	t.Helper()
	client := fake.NewSimpleClientset(&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "team-alpha"}})
	client.PrependReactor("create", "subjectaccessreviews", func(action k8stesting.Action) (bool, runtime.Object, error) {
		review := action.(k8stesting.CreateAction).GetObject().(*authorizationv1.SubjectAccessReview).DeepCopy()
		review.Status.Allowed = true
		return true, review, nil
	})

	store := testutil.NewSQLiteDB(t)
	svc := issues.NewService(authz.NewGate(client, nil), store, store, issues.Config{ClusterName: "kind"}, nil)
	srv := httptest.NewServer(api.NewRouter(api.Context{
		Issues:      svc,
		Namespaces:  api.NewKubeNamespaces(client),
		Store:       store,
		ClusterName: "kind",
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeBatch(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// ---------------------------------------------------------------------------
// command constructors
// ---------------------------------------------------------------------------

func TestIssuesCmd(t *testing.T) {
	cmd := issuesCmd()
	assert.Equal(t, "issues", cmd.Use)
	assert.Len(t, cmd.Commands(), 2)

	assert.Contains(t, issuesListCmd().Long, "Categories: security, reliability, performance, configuration, unknown.")

	submit := issuesSubmitCmd()
	f := submit.Flags().Lookup("filename")
	require.NotNil(t, f)
	assert.Equal(t, "f", f.Shorthand)
}

// ---------------------------------------------------------------------------
// end to end against an in-process API
// ---------------------------------------------------------------------------

func TestSubmitThenList(t *testing.T) {
	url := startAPI(t)

	out, err := execute(t, "issues", "submit", "-f", writeBatch(t, batchYAML), "--server", url, "-o", "json")
	require.NoError(t, err, out)
	var submitted SubmitResult
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	assert.Equal(t, SubmitResult{Status: "OK", Submitted: 2, Stored: 2}, submitted)

	out, err = execute(t, "issues", "list", "security", "team-alpha", "--server", url, "-o", "json")
	require.NoError(t, err, out)
	var listed ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 1, listed.Total)
	require.Len(t, listed.Objects, 1)
	assert.Equal(t, "api", listed.Objects[0].Metadata.ObjectName)
	assert.Equal(t, "kind", listed.Objects[0].Metadata.Cluster)

	out, err = execute(t, "issues", "list", "reliability", "team-alpha", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "no-probe")
	assert.Contains(t, out, "web")
}

func TestList_UnknownCategory(t *testing.T) {
	_, err := execute(t, "issues", "list", "cost", "team-alpha", "--server", "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown issue category")
}

func TestSubmit_InvalidElementStopsOnServer(t *testing.T) {
	url := startAPI(t)
	path := writeBatch(t, `issues:
  - object: {namespace: team-alpha, object_type: Deployment, object_name: api}
    category: security
    issue_tech_id: CVE-2024-1
  - object: {namespace: team-alpha, object_name: worker}
    category: security
  - object: {namespace: team-alpha, object_type: Deployment, object_name: web}
    category: security
`)

	out, err := execute(t, "issues", "submit", "-f", path, "--server", url, "-o", "json")
	require.Error(t, err)
	var ae *apiError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 500, ae.Status)
	var submitted SubmitResult
	require.NoError(t, json.Unmarshal([]byte(out), &submitted))
	assert.Equal(t, SubmitResult{Status: "error", Submitted: 3, Stored: 1}, submitted)

	out, err = execute(t, "issues", "list", "security", "team-alpha", "--server", url, "-o", "json")
	require.NoError(t, err, out)
	var listed ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, 1, listed.Total)
	require.Len(t, listed.Objects, 1)
	assert.Equal(t, "api", listed.Objects[0].Metadata.ObjectName)
}

func TestSubmit_PartialFailure(t *testing.T) {
	url := startAPI(t)
	path := writeBatch(t, batchYAML+`  - object: {namespace: team-alpha, object_type: Deployment, object_name: db}
    category: security
    linked_object_id: 8c4b6f6e-3c1d-4c55-9d0e-9a1a2b3c4d5e
`)

	out, err := execute(t, "issues", "submit", "-f", path, "--server", url)
	require.Error(t, err)
	assert.Contains(t, out, "2/3")
	var ae *apiError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 500, ae.Status)
}

func TestStatusAndNamespaces(t *testing.T) {
	url := startAPI(t)

	out, err := execute(t, "status", "--server", url)
	require.NoError(t, err)
	assert.Contains(t, out, "kind")
	assert.True(t, strings.Contains(out, "READY") && strings.Contains(out, "true"))

	out, err = execute(t, "namespaces", "--server", url, "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "- team-alpha")
}
