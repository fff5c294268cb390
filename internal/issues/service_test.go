package issues

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nerzhul/coa/internal/db"
	"github.com/nerzhul/coa/internal/testutil"
	"github.com/nerzhul/coa/internal/types"
)

// ---- fakes ----

type fakeAuthorizer struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakeAuthorizer) HasRights(context.Context, string, string, []string) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

// recordingStore wraps a real store and counts read calls.
type recordingStore struct {
	*db.Database
	reads int
}

func (r *recordingStore) GetObjectsWithIssueCategoryInNamespace(ctx context.Context, c types.IssueCategory, ns string) ([]types.NamespacedObject, error) {
	r.reads++
	return r.Database.GetObjectsWithIssueCategoryInNamespace(ctx, c, ns)
}

func (r *recordingStore) GetIssuesWithCategoryForNamespace(ctx context.Context, c types.IssueCategory, ns string) ([]types.Issue, error) {
	r.reads++
	return r.Database.GetIssuesWithCategoryForNamespace(ctx, c, ns)
}

type failingStore struct {
	*db.Database
	err error
}

func (f *failingStore) GetIssuesWithCategoryForNamespace(context.Context, types.IssueCategory, string) ([]types.Issue, error) {
	return nil, f.err
}

var admin = types.Identity{Subject: "admin", Groups: []string{"system:masters"}}

func newTestService(t *testing.T, authz Authorizer, dedup DedupPolicy) (*Service, *recordingStore) {
	t.Helper()
	store := &recordingStore{Database: testutil.NewSQLiteDB(t)}
	svc := NewService(authz, store, store, Config{ClusterName: "local", Dedup: dedup}, zap.NewNop())
	return svc, store
}

func submit(t *testing.T, svc *Service, batch ...types.IssueSubmission) {
	t.Helper()
	n, err := svc.StoreIssues(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, len(batch), n)
}

// ---- read path ----

func TestListObjectsWithIssues_CategoryJoin(t *testing.T) {
	svc, _ := newTestService(t, &fakeAuthorizer{allowed: true}, DedupAppend)
	ctx := context.Background()

	submit(t, svc,
		testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "S1"),
		testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "S2"),
		testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategoryPerformance, "P1"),
		testutil.MakeSubmission("prod", "Deployment", "o2", types.IssueCategorySecurity, "S3"),
	)

	got, err := svc.ListObjectsWithIssues(ctx, types.IssueCategorySecurity, "prod", admin)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].Metadata.ObjectName)
	assert.Equal(t, "local", got[0].Metadata.Cluster)
	require.Len(t, got[0].Issues, 2)
	assert.Equal(t, "S1", got[0].Issues[0].IssueTechID)
	assert.Equal(t, "S2", got[0].Issues[1].IssueTechID)
	assert.Equal(t, "o2", got[1].Metadata.ObjectName)
	require.Len(t, got[1].Issues, 1)
	for _, o := range got {
		for _, i := range o.Issues {
			assert.Equal(t, o.Metadata.ID, i.ObjectID)
		}
	}

	got, err = svc.ListObjectsWithIssues(ctx, types.IssueCategoryPerformance, "prod", admin)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].Metadata.ObjectName)
	assert.Len(t, got[0].Issues, 1)

	got, err = svc.ListObjectsWithIssues(ctx, types.IssueCategoryReliability, "prod", admin)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListObjectsWithIssues_LinkedObjectIncluded(t *testing.T) {
	svc, _ := newTestService(t, &fakeAuthorizer{allowed: true}, DedupAppend)

	sub := testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "CVE-1")
	linked := testutil.Ref("prod", "Image", "o2")
	sub.LinkedObject = &linked
	submit(t, svc, sub)

	got, err := svc.ListObjectsWithIssues(context.Background(), types.IssueCategorySecurity, "prod", admin)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "o1", got[0].Metadata.ObjectName)
	assert.Len(t, got[0].Issues, 1)
	assert.Equal(t, "o2", got[1].Metadata.ObjectName)
	assert.NotNil(t, got[1].Issues)
	assert.Empty(t, got[1].Issues)
	require.NotNil(t, got[0].Issues[0].LinkedObjectID)
	assert.Equal(t, got[1].Metadata.ID, *got[0].Issues[0].LinkedObjectID)
}

func TestListObjectsWithIssues_DenyShortCircuits(t *testing.T) {
	authz := &fakeAuthorizer{allowed: false}
	svc, store := newTestService(t, authz, DedupAppend)

	got, err := svc.ListObjectsWithIssues(context.Background(), types.IssueCategorySecurity, "prod", admin)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Nil(t, got)
	assert.Equal(t, 1, authz.calls)
	assert.Zero(t, store.reads, "no storage query may run after a deny")
}

func TestListObjectsWithIssues_AuthzBackendError(t *testing.T) {
	boom := errors.New("apiserver unavailable")
	svc, store := newTestService(t, &fakeAuthorizer{err: boom}, DedupAppend)

	_, err := svc.ListObjectsWithIssues(context.Background(), types.IssueCategorySecurity, "prod", admin)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Zero(t, store.reads)
}

func TestListObjectsWithIssues_StorageError(t *testing.T) {
	boom := &db.StorageError{Op: "get issues", Err: errors.New("connection reset")}
	store := &failingStore{Database: testutil.NewSQLiteDB(t), err: boom}
	svc := NewService(&fakeAuthorizer{allowed: true}, store, store, Config{}, nil)

	_, err := svc.ListObjectsWithIssues(context.Background(), types.IssueCategorySecurity, "prod", admin)
	var se *db.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestMergeObjectsWithIssues_DropsUnreferenced(t *testing.T) {
	o1 := types.NamespacedObject{ID: uuid.New(), ObjectName: "o1"}
	o2 := types.NamespacedObject{ID: uuid.New(), ObjectName: "o2"}
	got := mergeObjectsWithIssues(
		[]types.NamespacedObject{o1, o2},
		[]types.Issue{{ObjectID: o1.ID, IssueTechID: "A"}},
	)
	require.Len(t, got, 1)
	assert.Equal(t, o1.ID, got[0].Metadata.ID)

	assert.Empty(t, mergeObjectsWithIssues(nil, nil))
}

// ---- write path ----

func TestStoreIssues_PartialBatch(t *testing.T) {
	svc, store := newTestService(t, &fakeAuthorizer{allowed: true}, DedupAppend)
	ctx := context.Background()

	missing := uuid.New()
	second := testutil.MakeSubmission("prod", "Deployment", "o2", types.IssueCategorySecurity, "B")
	second.LinkedObjectID = &missing

	n, err := svc.StoreIssues(ctx, []types.IssueSubmission{
		testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "A"),
		second,
		testutil.MakeSubmission("prod", "Deployment", "o3", types.IssueCategorySecurity, "C"),
	})
	require.Error(t, err)
	assert.Equal(t, 1, n)

	var be *BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Index)
	assert.ErrorIs(t, err, db.ErrReferentialIntegrity)

	issues, err := store.GetIssuesWithCategoryForNamespace(ctx, types.IssueCategorySecurity, "prod")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "A", issues[0].IssueTechID)
}

func TestStoreIssues_InvalidElement(t *testing.T) {
	svc, _ := newTestService(t, &fakeAuthorizer{allowed: true}, DedupAppend)

	bad := testutil.MakeSubmission("prod", "", "o2", types.IssueCategorySecurity, "B")
	n, err := svc.StoreIssues(context.Background(), []types.IssueSubmission{
		testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "A"),
		bad,
	})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestStoreIssues_DedupRefresh(t *testing.T) {
	svc, store := newTestService(t, &fakeAuthorizer{allowed: true}, DedupRefresh)
	ctx := context.Background()

	first := testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "A")
	again := first
	again.LastSeenAt = "2024-06-01T00:00:00Z"
	submit(t, svc, first, again)

	issues, err := store.GetIssuesWithCategoryForNamespace(ctx, types.IssueCategorySecurity, "prod")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "2024-06-01T00:00:00Z", issues[0].LastSeenAt)
}

func TestStoreIssues_DedupAppend(t *testing.T) {
	svc, store := newTestService(t, &fakeAuthorizer{allowed: true}, "")
	first := testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "A")
	submit(t, svc, first, first)

	issues, err := store.GetIssuesWithCategoryForNamespace(context.Background(), types.IssueCategorySecurity, "prod")
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestStoreIssues_FromFixture(t *testing.T) {
	svc, _ := newTestService(t, &fakeAuthorizer{allowed: true}, DedupAppend)
	batch := testutil.LoadBatch(t, "testdata/batch.yaml")
	require.Len(t, batch, 3)
	assert.Equal(t, types.IssueCategoryReliability, batch[1].Category)
	submit(t, svc, batch...)

	got, err := svc.ListObjectsWithIssues(context.Background(), types.IssueCategorySecurity, "prod", admin)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Deployment/api, Image/registry..., StatefulSet/db
	assert.Equal(t, "Deployment", got[0].Metadata.ObjectType)
	assert.Equal(t, "Image", got[1].Metadata.ObjectType)
	assert.Empty(t, got[1].Issues)
	assert.Equal(t, "edge-1", got[2].Metadata.Cluster)
}

func TestStoreIssues_WritePathIsNotGated(t *testing.T) {
	authz := &fakeAuthorizer{allowed: false}
	svc, _ := newTestService(t, authz, DedupAppend)
	submit(t, svc, testutil.MakeSubmission("prod", "Deployment", "o1", types.IssueCategorySecurity, "A"))
	assert.Zero(t, authz.calls)
}

func TestParseDedupPolicy(t *testing.T) {
	p, err := ParseDedupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DedupAppend, p)

	p, err = ParseDedupPolicy(" Refresh ")
	require.NoError(t, err)
	assert.Equal(t, DedupRefresh, p)

	_, err = ParseDedupPolicy("upsert")
	assert.Error(t, err)
}
