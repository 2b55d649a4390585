package services

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
	"heirloom/pkg/cache"
	"heirloom/pkg/testutil"
)

const runbook = "Kubernetes deployment runbook. Every deployment goes through the staging cluster first. " +
	"Rollbacks use the previous image tag and finish within minutes. Kubernetes namespaces separate teams."

type docFixture struct {
	db    *gorm.DB
	dir   string
	svc   *DocumentService
	owner auth.Principal
	admin auth.Principal
}

func newDocFixture(t *testing.T) *docFixture {
	db := testutil.NewDB(t)
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	c := cache.New(8, 0)
	t.Cleanup(c.Close)
	knowledge := NewKnowledgeService(db, c, testutil.Logger())
	return &docFixture{
		db:    db,
		dir:   dir,
		svc:   NewDocumentService(db, store, knowledge, 1<<20, testutil.Logger()),
		owner: testutil.Principal(testutil.CreateUser(t, db, "emp@example.com", auth.RoleEmployee)),
		admin: testutil.Principal(testutil.CreateUser(t, db, "admin@example.com", auth.RoleAdmin)),
	}
}

func TestIngestTextDocument(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	res, err := f.svc.Ingest(ctx, f.owner, Upload{Filename: "k8s-runbook.md", MimeType: "application/octet-stream", Data: []byte(runbook)})
	require.NoError(t, err)

	doc := res.Document
	assert.Equal(t, MimeMarkdown, doc.MimeType)
	assert.Equal(t, "md", doc.FileType)
	assert.True(t, doc.Processed)
	assert.Equal(t, int64(len(runbook)), doc.FileSize)
	assert.True(t, strings.HasPrefix(doc.FilePath, strconv.Itoa(int(f.owner.UserID))+"/"))
	assert.FileExists(t, filepath.Join(f.dir, doc.FilePath))

	entry := res.Entry
	assert.Equal(t, "k8s-runbook", entry.Title)
	assert.Equal(t, models.SourceUpload, entry.Source)
	assert.Equal(t, "infrastructure", entry.Category)
	assert.Equal(t, doc.FilePath, entry.FilePath)
	assert.Equal(t, "kubernetes", entry.Keywords[0])
	assert.Equal(t, []string(entry.Keywords), []string(entry.Tags))
	assert.Equal(t, Summarize(runbook), entry.Summary)

	mine, err := f.svc.ListMine(ctx, f.owner.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "/uploads/"+doc.FilePath, mine[0].URL)
}

func TestIngestRejections(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()

	_, err := f.svc.Ingest(ctx, f.owner, Upload{Filename: "a.txt", MimeType: "text/plain"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Ingest(ctx, f.owner, Upload{Filename: "a.png", MimeType: "image/png", Data: []byte("png")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	big := make([]byte, (1<<20)+1)
	_, err = f.svc.Ingest(ctx, f.owner, Upload{Filename: "big.txt", MimeType: "text/plain", Data: big})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Ingest(ctx, f.owner, Upload{Filename: "broken.pdf", MimeType: "application/pdf", Data: []byte("not a pdf at all")})
	assert.True(t, apperror.Is(err, apperror.KindProcessing))

	// nothing may be stored or persisted for rejected uploads
	var n int64
	f.db.Model(&models.Document{}).Count(&n)
	assert.Zero(t, n)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestDocxPlaceholder(t *testing.T) {
	f := newDocFixture(t)
	res, err := f.svc.Ingest(context.Background(), f.owner, Upload{Filename: "Plan.docx", Data: []byte("PK\x03\x04 binary")})
	require.NoError(t, err)
	assert.Equal(t, MimeDOCX, res.Document.MimeType)
	assert.Equal(t, docxPlaceholder, res.Entry.Content)
}

func TestDeleteDocument(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	res, err := f.svc.Ingest(ctx, f.owner, Upload{Filename: "notes.txt", MimeType: "text/plain; charset=utf-8", Data: []byte(runbook)})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, f.admin, res.Document.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, f.svc.Delete(ctx, f.owner, res.Document.ID))
	assert.NoFileExists(t, filepath.Join(f.dir, res.Document.FilePath))

	var entry models.KnowledgeEntry
	require.NoError(t, f.db.First(&entry, res.Entry.ID).Error)
	assert.Equal(t, models.StateDeleted, entry.State)

	err = f.svc.Delete(ctx, f.owner, res.Document.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDocumentStats(t *testing.T) {
	f := newDocFixture(t)
	ctx := context.Background()
	_, err := f.svc.Ingest(ctx, f.owner, Upload{Filename: "a.txt", MimeType: "text/plain", Data: []byte("first file text")})
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, f.owner, Upload{Filename: "b.txt", MimeType: "text/plain", Data: []byte("second")})
	require.NoError(t, err)
	_, err = f.svc.Ingest(ctx, f.owner, Upload{Filename: "c.md", MimeType: "text/markdown", Data: []byte("third")})
	require.NoError(t, err)

	_, err = f.svc.Stats(ctx, f.owner)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	stats, err := f.svc.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalDocuments)
	assert.Equal(t, int64(3), stats.ProcessedDocuments)
	assert.Equal(t, int64(15+6+5), stats.TotalSize)
	require.Len(t, stats.ByType, 2)
	assert.Equal(t, TypeCount{FileType: "txt", Count: 2}, stats.ByType[0])
}
