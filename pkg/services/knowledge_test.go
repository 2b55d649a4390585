package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	"heirloom/pkg/cache"
	"heirloom/pkg/testutil"
)

func intPtr(i int) *int { return &i }

func newKnowledge(t *testing.T) (*KnowledgeService, auth.Principal, auth.Principal, auth.Principal) {
	db := testutil.NewDB(t)
	c := cache.New(16, 0)
	t.Cleanup(c.Close)
	svc := NewKnowledgeService(db, c, testutil.Logger())
	admin := testutil.Principal(testutil.CreateUser(t, db, "admin@example.com", auth.RoleAdmin))
	senior := testutil.Principal(testutil.CreateUser(t, db, "senior@example.com", auth.RoleSeniorDev))
	emp := testutil.Principal(testutil.CreateUser(t, db, "emp@example.com", auth.RoleEmployee))
	return svc, admin, senior, emp
}

func TestKnowledgeCreate(t *testing.T) {
	svc, _, senior, emp := newKnowledge(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, emp, KnowledgeInput{Title: "x", Content: "y"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = svc.Create(ctx, senior, KnowledgeInput{Title: "x"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Create(ctx, senior, KnowledgeInput{Title: "x", Content: "y", Source: "rumour"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	content := strings.Repeat("c", 250)
	e, err := svc.Create(ctx, senior, KnowledgeInput{Title: "Runbook", Content: content, Tags: []string{"ops", " "}})
	require.NoError(t, err)
	assert.Equal(t, models.SourceManual, e.Source)
	assert.Equal(t, "general", e.Category)
	assert.Equal(t, 1, e.Priority)
	assert.Equal(t, content[:200]+"...", e.Summary)
	assert.Equal(t, []string{"ops"}, []string(e.Tags))
	require.NotNil(t, e.UploadedBy)
	assert.Equal(t, senior.UserID, *e.UploadedBy)
}

func TestKnowledgeListFilters(t *testing.T) {
	svc, admin, senior, _ := newKnowledge(t)
	ctx := context.Background()

	n, err := svc.BatchInsert(ctx, []KnowledgeInput{
		{Title: "Kafka tuning", Content: "Partition counts matter", Category: "infrastructure", Tags: []string{"kafka", "streaming"}, Priority: intPtr(5)},
		{Title: "Go style", Content: "Accept interfaces", Category: "development", Source: "kaggle", Tags: []string{"golang"}},
		{Title: "Onboarding", Content: "Read the handbook first", Category: "documentation"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = svc.Create(ctx, senior, KnowledgeInput{Title: "Kafka consumers", Content: "Commit offsets", Category: "infrastructure", Tags: []string{"kafka"}, Priority: intPtr(2)})
	require.NoError(t, err)

	all, err := svc.List(ctx, KnowledgeFilter{})
	require.NoError(t, err)
	require.Len(t, all.Entries, 4)
	assert.Equal(t, "Kafka tuning", all.Entries[0].Title)
	assert.Equal(t, "Kafka consumers", all.Entries[1].Title)
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 4, Pages: 1}, all.Pagination)

	byTag, err := svc.List(ctx, KnowledgeFilter{Tags: []string{"kafka"}})
	require.NoError(t, err)
	assert.Len(t, byTag.Entries, 2)

	bySource, err := svc.List(ctx, KnowledgeFilter{Sources: []string{"kaggle", "manual"}})
	require.NoError(t, err)
	assert.Len(t, bySource.Entries, 2)

	byCat, err := svc.List(ctx, KnowledgeFilter{Categories: []string{"documentation"}})
	require.NoError(t, err)
	require.Len(t, byCat.Entries, 1)
	assert.Equal(t, models.SourceSynthetic, byCat.Entries[0].Source)

	found, err := svc.Search(ctx, "HANDBOOK", KnowledgeFilter{})
	require.NoError(t, err)
	require.Len(t, found.Entries, 1)
	assert.Equal(t, "Onboarding", found.Entries[0].Title)

	_, err = svc.Search(ctx, "  ", KnowledgeFilter{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	paged, err := svc.List(ctx, KnowledgeFilter{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, paged.Entries, 1)
	assert.Equal(t, 2, paged.Pagination.Pages)

	require.NoError(t, svc.Delete(ctx, admin, all.Entries[0].ID))
	assert.True(t, apperror.Is(svc.Delete(ctx, admin, all.Entries[0].ID), apperror.KindNotFound))
	assert.True(t, apperror.Is(svc.Delete(ctx, senior, all.Entries[1].ID), apperror.KindForbidden))

	after, err := svc.List(ctx, KnowledgeFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), after.Pagination.Total)
}

func TestBatchInsertIsAtomic(t *testing.T) {
	svc, _, _, _ := newKnowledge(t)
	ctx := context.Background()

	_, err := svc.BatchInsert(ctx, []KnowledgeInput{
		{Title: "ok", Content: "fine"},
		{Title: "missing content"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")

	page, err := svc.List(ctx, KnowledgeFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Pagination.Total)

	_, err = svc.BatchInsert(ctx, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestMetadataCacheInvalidation(t *testing.T) {
	svc, _, senior, _ := newKnowledge(t)
	ctx := context.Background()

	md, err := svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Zero(t, md.Total)

	_, err = svc.Create(ctx, senior, KnowledgeInput{Title: "a", Content: "b", Category: "security"})
	require.NoError(t, err)

	md, err = svc.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), md.Total)
	assert.Equal(t, []CategoryCount{{Category: "security", Count: 1}}, md.Categories)
	assert.Equal(t, []SourceCount{{Source: "manual", Count: 1}}, md.Sources)
}
